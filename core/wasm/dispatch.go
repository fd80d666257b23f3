package wasm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ErrShutdown is returned for calls made while the dispatcher is closing.
var ErrShutdown = errors.New("dispatcher is shutting down")

// defaultCallTimeout bounds a call whose context has no deadline.
const defaultCallTimeout = 30 * time.Second

// request is one JSON line written to the module's stdin.
type request struct {
	ID        uint32         `json:"id"`
	Op        string         `json:"op"`
	Name      string         `json:"name,omitempty"`
	Bundle    any            `json:"bundle,omitempty"`
	Markdown  string         `json:"markdown,omitempty"`
	Format    string         `json:"format,omitempty"`
	QuillName string         `json:"quillName,omitempty"`
	Assets    map[string]any `json:"assets,omitempty"`
}

// response is one JSON line read from the module's stdout.
type response struct {
	ID     uint32          `json:"id"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

type call struct {
	req  request
	resp response
	err  error
	done chan *call
}

func (c *call) finish() {
	select {
	case c.done <- c:
	default:
	}
}

// dispatcher multiplexes calls over one module instance's stdio.
type dispatcher struct {
	mu      sync.Mutex
	encMu   sync.Mutex
	pending map[uint32]*call

	enc *json.Encoder
	dec *json.Decoder

	closing  atomic.Bool
	shutdown atomic.Bool

	close func() error
}

func newDispatcher(stdin io.Writer, stdout io.Reader, close func() error) *dispatcher {
	d := &dispatcher{
		pending: make(map[uint32]*call),
		enc:     json.NewEncoder(stdin),
		dec:     json.NewDecoder(stdout),
		close:   close,
	}
	go d.input()
	return d
}

// execute sends req and waits for the matching response. Both the write
// and the wait give up when ctx ends.
func (d *dispatcher) execute(ctx context.Context, req request) (response, error) {
	if req.ID == 0 {
		return response{}, errors.New("request ID must not be 0")
	}
	if d.closing.Load() {
		return response{}, ErrShutdown
	}

	c := &call{req: req, done: make(chan *call, 1)}
	d.mu.Lock()
	if d.shutdown.Load() {
		d.mu.Unlock()
		return response{}, ErrShutdown
	}
	d.pending[req.ID] = c
	d.mu.Unlock()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultCallTimeout)
		defer cancel()
	}

	// A module that stops reading stdin blocks the write until its pipe closes.
	sent := make(chan error, 1)
	go func() {
		d.encMu.Lock()
		defer d.encMu.Unlock()
		sent <- d.enc.Encode(req)
	}()

wait:
	for {
		select {
		case err := <-sent:
			if err != nil {
				d.forget(req.ID)
				return response{}, fmt.Errorf("sending %s request: %w", req.Op, err)
			}
			sent = nil
		case c = <-c.done:
			break wait
		case <-ctx.Done():
			d.forget(req.ID)
			return response{}, fmt.Errorf("waiting for %s response: %w", req.Op, ctx.Err())
		}
	}
	if c.err != nil {
		return response{}, c.err
	}
	if c.resp.Error != "" {
		return c.resp, fmt.Errorf("%s: %s", req.Op, c.resp.Error)
	}
	return c.resp, nil
}

func (d *dispatcher) forget(id uint32) {
	d.mu.Lock()
	delete(d.pending, id)
	d.mu.Unlock()
}

// input reads responses until stdout closes, then fails pending calls.
func (d *dispatcher) input() {
	var inputErr error
	for {
		var r response
		if err := d.dec.Decode(&r); err != nil {
			inputErr = err
			break
		}
		d.mu.Lock()
		c, found := d.pending[r.ID]
		delete(d.pending, r.ID)
		d.mu.Unlock()
		if !found {
			// Late reply for a call that already timed out.
			continue
		}
		c.resp = r
		c.finish()
	}

	if errors.Is(inputErr, io.EOF) || strings.Contains(inputErr.Error(), "closed pipe") {
		if d.closing.Load() {
			inputErr = ErrShutdown
		} else {
			inputErr = io.ErrUnexpectedEOF
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.shutdown.Store(true)
	for id, c := range d.pending {
		c.err = inputErr
		c.finish()
		delete(d.pending, id)
	}
}

func (d *dispatcher) Close() error {
	d.closing.Store(true)
	return d.close()
}

// pool round-robins calls across dispatchers.
type pool struct {
	counter     atomic.Uint32
	dispatchers []*dispatcher
}

func (p *pool) get() *dispatcher {
	return p.dispatchers[int(p.counter.Add(1))%len(p.dispatchers)]
}

func (p *pool) Close() error {
	var errs []error
	for _, d := range p.dispatchers {
		if err := d.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// pipe is an in-memory stdin or stdout for a module instance.
type pipe struct {
	*io.PipeReader
	*io.PipeWriter
}

func newPipe() pipe {
	pr, pw := io.Pipe()
	return pipe{pr, pw}
}

func (p pipe) Close() error {
	if err := p.PipeReader.Close(); err != nil {
		return err
	}
	return p.PipeWriter.Close()
}
