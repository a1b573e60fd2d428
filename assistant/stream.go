package assistant

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"lexio/apiclient"
	"lexio/model"
)

// scanner buffer sizing: individual frames can carry whole document excerpts.
const (
	streamBufInitial = 64 * 1024
	streamBufMax     = 4 * 1024 * 1024
)

// StreamQuery opens a streamed connection to the assistant query endpoint and
// delivers decoded chunks to cb in arrival order. It returns after the first
// terminal chunk; nothing past it is decoded even if the backend keeps
// writing. An error frame fails the whole stream. Cancelling ctx stops
// consumption and is reported as a nil error: a cancellation is not a failure.
//
// Each call opens a fresh connection; a stream is not restartable.
func (c *Client) StreamQuery(ctx context.Context, req model.QueryRequest, cb model.StreamCallback) error {
	if req.Model == "" {
		req.Model = c.cfg.Model
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode query: %w", err)
	}

	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + streamQueryPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.cfg.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return apiclient.Normalize(err, nil)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
		return apiclient.FromStatus(resp.StatusCode, errorBodyMessage(data))
	}

	c.logf("stream opened: conversation=%s model=%s docs=%d", req.ConversationID, req.Model, len(req.Documents))
	err = decodeStream(resp.Body, cb)
	if ctx.Err() != nil {
		// The transport error is an artifact of the abort; suppress it.
		return nil
	}
	return err
}

// decodeStream reads server-sent "data:" frames and dispatches each decoded
// chunk until a terminal one arrives. Chunks are delivered strictly in
// receipt order; there is no buffering beyond framing.
func decodeStream(r io.Reader, cb model.StreamCallback) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, streamBufInitial), streamBufMax)

	var data []string
	flush := func() (done bool, err error) {
		if len(data) == 0 {
			return false, nil
		}
		payload := strings.Join(data, "\n")
		data = data[:0]

		var chunk model.StreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return false, fmt.Errorf("malformed stream frame: %w", err)
		}
		if chunk.Error != "" || chunk.Type == model.ChunkError {
			msg := chunk.Error
			if msg == "" {
				msg = "stream failed"
			}
			return false, &apiclient.APIError{Kind: apiclient.KindServer, Message: msg}
		}
		if err := cb(chunk); err != nil {
			return false, err
		}
		return chunk.Terminal(), nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		case line == "":
			done, err := flush()
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
		// "event:" and comment lines carry nothing we need.
	}
	done, err := flush()
	if err != nil {
		return err
	}
	if done {
		return nil
	}
	if err := scanner.Err(); err != nil {
		return apiclient.Normalize(err, nil)
	}
	// The backend closed without a terminal chunk.
	return errors.New("stream ended before completion")
}

func errorBodyMessage(data []byte) string {
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	for _, key := range []string{"message", "error", "detail"} {
		if s, ok := body[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
