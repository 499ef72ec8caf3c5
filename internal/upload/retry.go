package upload

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// requestOutcome is what the retry layer resolves an attempt to.
type requestOutcome struct {
	success bool
	failure FailureReason
	body    []byte
}

// maxAttempts bounds execute_request to at most three tries, per spec
// §4.K.
const maxAttempts = 3

// newRequestBackOff builds the exponential curve spec §4.K mandates:
// 1s initial, doubling, capped at 10s, no jitter.
func newRequestBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 1 * time.Second
	b.Multiplier = 2
	b.MaxInterval = 10 * time.Second
	b.RandomizationFactor = 0
	return b
}

// permanentFailure wraps a non-retryable classification so backoff.Retry
// stops immediately instead of spending its remaining attempts.
type permanentFailure struct {
	outcome requestOutcome
}

func (p *permanentFailure) Error() string { return "upload: " + string(p.outcome.failure) }

// executeRequest runs buildReq through the retry layer. buildReq is called
// fresh on every attempt since an *http.Request body can only be read
// once.
func executeRequest(ctx context.Context, client *http.Client, buildReq func() (*http.Request, error)) (requestOutcome, error) {
	op := func() (requestOutcome, error) {
		req, err := buildReq()
		if err != nil {
			return requestOutcome{}, backoff.Permanent(err)
		}
		resp, err := client.Do(req)
		if err != nil {
			log.Printf("upload: request failed: %v", err)
			return requestOutcome{}, errors.New("transport error")
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return requestOutcome{success: true, body: body}, nil
		}

		var reason FailureReason
		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			reason = Unauthorized
		case resp.StatusCode == http.StatusRequestTimeout, resp.StatusCode >= 500 && resp.StatusCode <= 504:
			reason = NetworkError
		default:
			reason = ServerError
		}
		outcome := requestOutcome{success: false, failure: reason, body: body}
		if reason != NetworkError {
			return outcome, backoff.Permanent(&permanentFailure{outcome: outcome})
		}
		return outcome, errors.New("retryable server error")
	}

	outcome, err := backoff.Retry(ctx, op, backoff.WithBackOff(newRequestBackOff()), backoff.WithMaxTries(maxAttempts))
	if err == nil {
		return outcome, nil
	}

	var perm *permanentFailure
	if errors.As(err, &perm) {
		return perm.outcome, nil
	}

	// Every attempt exhausted on a retryable classification (transient
	// network error or repeated 408/5xx): surface NetworkError.
	return requestOutcome{success: false, failure: NetworkError}, nil
}
