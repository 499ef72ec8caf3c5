package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/nuscape/windows-agent/internal/agentconfig"
	"github.com/nuscape/windows-agent/internal/batch"
	"github.com/nuscape/windows-agent/internal/queue"
	"github.com/nuscape/windows-agent/internal/tokenstore"
)

const userAgent = "NuScape-Windows-Agent/1.0"

// Engine is the single-flight upload pump: UploadPending must not be
// invoked concurrently with itself, matching the runtime scheduler's
// single uploader goroutine.
type Engine struct {
	mu     sync.Mutex
	client *http.Client
	config *agentconfig.ConfigStore
	tokens *tokenstore.Store
	queue  *queue.Store
}

// New builds an Engine over a default http.Client with no client-side
// timeout; each request sets the agent's User-Agent header itself.
func New(config *agentconfig.ConfigStore, tokens *tokenstore.Store, q *queue.Store) *Engine {
	return &Engine{
		client: &http.Client{},
		config: config,
		tokens: tokens,
		queue:  q,
	}
}

// UploadPending drains the queue head-first until it empties or a failure
// interrupts progress, per the algorithm in spec §4.K.
func (e *Engine) UploadPending(ctx context.Context) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, err := e.config.ResolveUploadConfig()
	if err != nil {
		log.Printf("upload blocked: %v", err)
		return Result{FailureReason: MissingConfig}, nil
	}

	var uploaded int
	for {
		head, ok := e.queue.Peek()
		if !ok {
			return Result{UploadedBatches: uploaded}, nil
		}

		chunks, err := batch.Chunk(head, batch.DefaultChunkSessionLimit, batch.DefaultChunkByteLimit)
		if err != nil {
			return Result{UploadedBatches: uploaded}, fmt.Errorf("chunk batch: %w", err)
		}

		reason, err := e.deliverChunks(ctx, cfg, chunks)
		if err != nil {
			return Result{UploadedBatches: uploaded}, err
		}
		if reason != "" {
			return Result{UploadedBatches: uploaded, FailureReason: reason}, nil
		}

		if err := e.queue.Pop(); err != nil {
			return Result{UploadedBatches: uploaded}, fmt.Errorf("pop delivered batch: %w", err)
		}
		uploaded += len(chunks)
	}
}

// deliverChunks sends every chunk of one batch in order, handling the
// single-refresh-per-batch rule. An empty FailureReason means every chunk
// succeeded.
func (e *Engine) deliverChunks(ctx context.Context, cfg agentconfig.UploadConfig, chunks []batch.UsageBatch) (FailureReason, error) {
	refreshed := false

	for i := 0; i < len(chunks); {
		access, ok := e.tokens.AccessToken()
		if !ok {
			return MissingToken, nil
		}

		if e.tokens.IsExpired(time.Now().UTC()) {
			if !refreshed {
				ok, err := e.tryRefresh(ctx, cfg.BaseURL)
				if err != nil {
					return "", err
				}
				if ok {
					refreshed = true
					continue
				}
			}
			return TokenExpired, nil
		}

		payload, err := json.Marshal(chunks[i])
		if err != nil {
			return "", fmt.Errorf("marshal chunk: %w", err)
		}

		outcome, err := executeRequest(ctx, e.client, func() (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BatchURL, bytes.NewReader(payload))
			if err != nil {
				return nil, err
			}
			req.Header.Set("Authorization", "Bearer "+access)
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("User-Agent", userAgent)
			return req, nil
		})
		if err != nil {
			return "", err
		}

		if outcome.success {
			i++
			refreshed = false
			continue
		}

		if outcome.failure == Unauthorized && !refreshed {
			ok, err := e.tryRefresh(ctx, cfg.BaseURL)
			if err != nil {
				return "", err
			}
			if ok {
				refreshed = true
				continue
			}
		}
		if outcome.failure == Unauthorized {
			_ = e.tokens.Clear()
		}
		return outcome.failure, nil
	}

	return "", nil
}
