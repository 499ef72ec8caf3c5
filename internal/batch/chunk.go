package batch

// Chunk splits a batch into upload-ready chunks honoring maxSessions and
// maxBytes. All chunks share DeviceID and SentAt. Only the first chunk
// carries NetworkDeltas and Status; later chunks carry neither, even if
// the source batch's session list is empty (see the "empty session list"
// edge case handled by the early return below).
func Chunk(b UsageBatch, maxSessions, maxBytes int) ([]UsageBatch, error) {
	if len(b.Sessions) == 0 {
		return []UsageBatch{b}, nil
	}

	var chunks []UsageBatch
	index := 0
	includeMeta := true

	for index < len(b.Sessions) {
		end := index + maxSessions
		if end > len(b.Sessions) {
			end = len(b.Sessions)
		}

		chunk := buildChunk(b, index, end, includeMeta)
		size, err := chunk.jsonSize()
		if err != nil {
			return nil, err
		}
		for size > maxBytes && end-index > 1 {
			end--
			chunk = buildChunk(b, index, end, includeMeta)
			size, err = chunk.jsonSize()
			if err != nil {
				return nil, err
			}
		}

		chunks = append(chunks, chunk)
		index = end
		includeMeta = false
	}

	return chunks, nil
}

func buildChunk(b UsageBatch, start, end int, includeMeta bool) UsageBatch {
	sessions := make([]UsageSession, end-start)
	copy(sessions, b.Sessions[start:end])

	chunk := UsageBatch{
		DeviceID: b.DeviceID,
		SentAt:   b.SentAt,
		Sessions: sessions,
	}
	if includeMeta {
		chunk.NetworkDeltas = b.NetworkDeltas
		chunk.Status = b.Status
	} else {
		chunk.NetworkDeltas = []NetworkDelta{}
	}
	return chunk
}
