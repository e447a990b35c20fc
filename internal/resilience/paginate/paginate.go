// Package paginate drives a cursor-paginated API action to completion,
// feeding the server's continuation token back into successive requests
// and assembling the per-call payloads into one ordered sequence.
//
// The aggregator never retries: transient durability is the retry
// engine's job, composed externally when a long pagination must also
// survive session loss.
package paginate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/vietddude/wikibot/internal/core/domain"
	"github.com/vietddude/wikibot/internal/metrics"
)

// continueSentinel is the meta key the action API places alongside the
// actual cursor key inside a continuation block.
const continueSentinel = "continue"

// Caller performs one authenticated API round trip.
type Caller interface {
	Call(ctx context.Context, action, method string, params domain.Params) (domain.Payload, error)
}

// Checkpoint records the request state that would fetch the next page.
// Saved after every successful page so an aborted run can resume from
// the last good one.
type Checkpoint struct {
	Action      string        `json:"action"`
	ContinueKey string        `json:"continue_key"`
	Params      domain.Params `json:"params"`
	Page        int           `json:"page"` // pages fetched so far
}

// Checkpointer persists checkpoints between pages. Optional.
type Checkpointer interface {
	Save(ctx context.Context, runKey string, cp Checkpoint) error
	// Load returns the checkpoint under runKey, or (nil, nil) when
	// none exists.
	Load(ctx context.Context, runKey string) (*Checkpoint, error)
	Clear(ctx context.Context, runKey string) error
}

// Collector aggregates continued API calls.
type Collector struct {
	caller      Caller
	checkpoints Checkpointer
	runKey      string
	log         *slog.Logger
}

// NewCollector creates a collector over caller.
func NewCollector(caller Caller) *Collector {
	return &Collector{caller: caller, log: slog.Default()}
}

// WithCheckpoints returns a copy of the collector that saves a
// checkpoint under runKey after each page and clears it on success.
func (c *Collector) WithCheckpoints(store Checkpointer, runKey string) *Collector {
	clone := *c
	clone.checkpoints = store
	clone.runKey = runKey
	return &clone
}

// Collect issues the action until the server stops returning a
// continuation block, and returns the action-keyed payload of every
// call in call order.
//
// continueKey pins the cursor key of the continuation block (e.g.
// "cmcontinue"). Empty means auto-discover: the first data key of the
// first block is adopted and frozen for the rest of the run.
//
// A transport or API failure surfaces as a *domain.ContinuationError
// carrying the 1-based call index and the parameters in effect, enough
// to resume from the last good page. A malformed continuation block
// surfaces as a *domain.ProtocolError.
//
// With a checkpoint store attached, a run aborted mid-way leaves its
// last saved checkpoint behind, and the next Collect under the same
// runKey resumes from it: the stored cursor parameters replace base and
// the returned payloads cover the remaining pages only. A checkpoint
// for a different action is ignored.
func (c *Collector) Collect(ctx context.Context, action, continueKey string, base domain.Params) ([]domain.Payload, error) {
	params := base.Clone()
	startCall := 1
	if c.checkpoints != nil {
		cp, err := c.checkpoints.Load(ctx, c.runKey)
		switch {
		case err != nil:
			c.log.Warn("checkpoint load failed, starting over", "run", c.runKey, "error", err)
		case cp != nil && cp.Action == action:
			params = cp.Params.Clone()
			continueKey = cp.ContinueKey
			startCall = cp.Page + 1
			c.log.Info("resuming from checkpoint",
				"run", c.runKey, "action", action, "pages_done", cp.Page)
		}
	}

	var results []domain.Payload
	for call := startCall; ; call++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := c.caller.Call(ctx, action, "GET", params)
		if err != nil {
			metrics.ContinuationErrorsTotal.WithLabelValues(action).Inc()
			return nil, &domain.ContinuationError{
				CallIndex: call,
				Action:    action,
				Params:    params.Clone(),
				Err:       err,
			}
		}

		payload := resp.Sub(action)
		if payload == nil {
			metrics.ContinuationErrorsTotal.WithLabelValues(action).Inc()
			return nil, &domain.ProtocolError{
				Reason: fmt.Sprintf("call %d: response carries no %q member", call, action),
			}
		}
		results = append(results, domain.Payload(payload))

		block := resp.Sub(continueSentinel)
		if block == nil {
			// Absence of the block is the only success-terminal
			// condition.
			break
		}

		if continueKey == "" {
			continueKey = discoverKey(block)
			if continueKey == "" {
				metrics.ContinuationErrorsTotal.WithLabelValues(action).Inc()
				return nil, &domain.ProtocolError{
					Reason: fmt.Sprintf("call %d: continuation block carries no cursor key", call),
				}
			}
			c.log.Debug("adopted continuation key", "action", action, "key", continueKey)
		}

		raw, ok := block[continueKey]
		if !ok {
			metrics.ContinuationErrorsTotal.WithLabelValues(action).Inc()
			return nil, &domain.ProtocolError{
				Reason: fmt.Sprintf("call %d: continuation key %q not in block (present: %s)",
					call, continueKey, strings.Join(blockKeys(block), ", ")),
			}
		}
		token := tokenString(raw)
		if token == "" {
			// A present key always carries a usable token; an empty one
			// is a broken contract, not "no more pages".
			metrics.ContinuationErrorsTotal.WithLabelValues(action).Inc()
			return nil, &domain.ProtocolError{
				Reason: fmt.Sprintf("call %d: continuation key %q carries an empty token", call, continueKey),
			}
		}

		params = params.Clone()
		params[continueKey] = token

		if c.checkpoints != nil {
			cp := Checkpoint{Action: action, ContinueKey: continueKey, Params: params.Clone(), Page: call}
			if err := c.checkpoints.Save(ctx, c.runKey, cp); err != nil {
				c.log.Warn("checkpoint save failed", "action", action, "run", c.runKey, "error", err)
			}
		}
	}

	metrics.ContinuationPages.Observe(float64(len(results)))
	if c.checkpoints != nil {
		if err := c.checkpoints.Clear(ctx, c.runKey); err != nil {
			c.log.Warn("checkpoint clear failed", "run", c.runKey, "error", err)
		}
	}
	return results, nil
}

// discoverKey picks the cursor key of a continuation block: the first
// data key in lexicographic order, skipping the meta sentinel. Go maps
// are unordered, so sorting keeps the choice deterministic.
func discoverKey(block map[string]any) string {
	for _, k := range blockKeys(block) {
		if k != continueSentinel {
			return k
		}
	}
	return ""
}

func blockKeys(block map[string]any) []string {
	keys := make([]string, 0, len(block))
	for k := range block {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func tokenString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case float64:
		// json numbers; rvcontinue-style numeric cursors
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
