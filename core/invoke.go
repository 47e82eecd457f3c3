package core

import (
	"context"
	"strings"
)

// CallResult carries the outcome of an asynchronous single-result invocation.
type CallResult struct {
	Value any
	Err   error
}

// Call invokes r synchronously and returns its final output. The resolved
// binding mapping is computed first and injected into Perform. A Stream
// output is drained to completion and adapted to a single value: all-string
// chunks are concatenated, mixed chunks are returned as a []any slice.
//
// On success the output is committed to the node's store under its output
// key through the nil-excluding set. If resolution, Perform or the stream's
// producer fails, the store is left unmodified and the error propagates
// unwrapped (resolution errors arrive as *BindingResolutionError). Context
// cancellation is the one exception: the partial output accumulated so far
// is committed alongside the context error.
func Call(ctx context.Context, r Runnable) (any, error) {
	n := r.Node()
	inputs, err := n.Resolve()
	if err != nil {
		return nil, err
	}
	out, err := r.Perform(ctx, inputs)
	if err != nil {
		return nil, err
	}
	switch o := out.(type) {
	case Value:
		n.commit(o.V)
		return o.V, nil
	case Stream:
		chunks, derr := drain(ctx, o.Ch)
		v := joinChunks(chunks)
		if derr != nil {
			// Partial output stays visible on cancellation; single-key
			// upserts need no rollback.
			n.commit(v)
			return v, derr
		}
		if o.Err != nil {
			if serr := <-o.Err; serr != nil {
				return nil, serr
			}
		}
		n.commit(v)
		return v, nil
	default:
		n.commit(nil)
		return nil, nil
	}
}

// CallAsync runs Call in its own goroutine and delivers the result on the
// returned channel, which is closed after the single send.
func CallAsync(ctx context.Context, r Runnable) <-chan CallResult {
	out := make(chan CallResult, 1)
	go func() {
		defer close(out)
		v, err := Call(ctx, r)
		out <- CallResult{Value: v, Err: err}
	}()
	return out
}

// Invoke runs r asynchronously and streams its output chunks. A Value output
// is adapted to a single-chunk stream. Both channels are closed when the
// invocation finishes; a terminal error (resolution, Perform or context
// cancellation) is delivered on the error channel. The final output is
// committed to the node's store exactly as Call does.
func Invoke(ctx context.Context, r Runnable) (<-chan any, <-chan error) {
	out := make(chan any, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		n := r.Node()
		inputs, err := n.Resolve()
		if err != nil {
			errCh <- err
			return
		}
		res, err := r.Perform(ctx, inputs)
		if err != nil {
			errCh <- err
			return
		}
		switch o := res.(type) {
		case Value:
			n.commit(o.V)
			if o.V == nil {
				return
			}
			select {
			case out <- o.V:
			case <-ctx.Done():
				errCh <- ctx.Err()
			}
		case Stream:
			var chunks []any
			for {
				select {
				case <-ctx.Done():
					n.commit(joinChunks(chunks))
					errCh <- ctx.Err()
					return
				case c, ok := <-o.Ch:
					if !ok {
						if o.Err != nil {
							if serr := <-o.Err; serr != nil {
								errCh <- serr
								return
							}
						}
						n.commit(joinChunks(chunks))
						return
					}
					if c == nil {
						continue
					}
					chunks = append(chunks, c)
					select {
					case out <- c:
					case <-ctx.Done():
						n.commit(joinChunks(chunks))
						errCh <- ctx.Err()
						return
					}
				}
			}
		default:
			n.commit(nil)
		}
	}()

	return out, errCh
}

// Each invokes r and applies fn to every output chunk in order, synchronously
// on the caller's goroutine. Iteration stops on the first fn error, which is
// returned; otherwise Each returns the invocation's terminal error, if any.
func Each(ctx context.Context, r Runnable, fn func(chunk any) error) error {
	out, errCh := Invoke(ctx, r)
	for c := range out {
		if err := fn(c); err != nil {
			// Unblock the producer before abandoning it.
			go func() {
				for range out { //nolint:revive // drain only
				}
			}()
			return err
		}
	}
	return <-errCh
}

// drain consumes a stream to completion, collecting non-nil chunks. On
// context cancellation it returns what was accumulated so far together with
// the context error.
func drain(ctx context.Context, ch <-chan any) ([]any, error) {
	var chunks []any
	for {
		select {
		case <-ctx.Done():
			return chunks, ctx.Err()
		case c, ok := <-ch:
			if !ok {
				return chunks, nil
			}
			if c != nil {
				chunks = append(chunks, c)
			}
		}
	}
}

// joinChunks adapts a drained stream to a single value: nothing -> nil, one
// chunk -> that chunk, all strings -> their concatenation, otherwise the
// chunk slice.
func joinChunks(chunks []any) any {
	switch len(chunks) {
	case 0:
		return nil
	case 1:
		return chunks[0]
	}
	var sb strings.Builder
	for _, c := range chunks {
		s, ok := c.(string)
		if !ok {
			return chunks
		}
		sb.WriteString(s)
	}
	return sb.String()
}
