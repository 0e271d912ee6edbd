package port

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"git2.jad.ru/MeterRS485/rfc2217-client/internal/rfc2217"
)

// DefaultScheme is assumed for bare host:port targets.
const DefaultScheme = "rfc2217"

// Factory creates an unopened Port for the host part of a URL.
type Factory func(addr string, opts Options) (Port, error)

// Registry maps URL schemes to port factories. Factories are registered
// explicitly at startup.
type Registry struct {
	factories sync.Map // map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds or replaces the factory for scheme.
func (r *Registry) Register(scheme string, f Factory) {
	r.factories.Store(strings.ToLower(scheme), f)
}

// Unregister removes a scheme.
func (r *Registry) Unregister(scheme string) {
	r.factories.Delete(strings.ToLower(scheme))
}

// Schemes returns the registered schemes, sorted.
func (r *Registry) Schemes() []string {
	var schemes []string
	r.factories.Range(func(key, value any) bool {
		schemes = append(schemes, key.(string))
		return true
	})
	sort.Strings(schemes)
	return schemes
}

// New creates a port for rawURL without opening it. URL query parameters
// baud, mode and flow override opts.Settings, e.g.
// rfc2217://10.0.0.5:4001?baud=115200&mode=8E1.
func (r *Registry) New(rawURL string, opts Options) (Port, error) {
	if !strings.Contains(rawURL, "://") {
		rawURL = DefaultScheme + "://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: port url %q: %v", rfc2217.ErrInvalidArgument, rawURL, err)
	}

	val, ok := r.factories.Load(strings.ToLower(u.Scheme))
	if !ok {
		return nil, fmt.Errorf("%w: unknown port scheme %q (have %s)",
			rfc2217.ErrInvalidArgument, u.Scheme, strings.Join(r.Schemes(), ", "))
	}

	if err := applyQuery(&opts, u.Query()); err != nil {
		return nil, err
	}
	return val.(Factory)(u.Host, opts)
}

// Open creates and opens a port for rawURL.
func (r *Registry) Open(ctx context.Context, rawURL string, opts Options) (Port, error) {
	p, err := r.New(rawURL, opts)
	if err != nil {
		return nil, err
	}
	if err := p.Open(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func applyQuery(opts *Options, q url.Values) error {
	if !q.Has("baud") && !q.Has("mode") && !q.Has("flow") {
		return nil
	}
	s := DefaultSettings()
	if opts.Settings != nil {
		s = *opts.Settings
	}

	if v := q.Get("baud"); v != "" {
		rate, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: baud %q", rfc2217.ErrInvalidArgument, v)
		}
		s.BaudRate = rate
	}
	if v := q.Get("mode"); v != "" {
		if err := s.SetMode(v); err != nil {
			return err
		}
	}
	if v := q.Get("flow"); v != "" {
		flow, err := ParseFlowControl(v)
		if err != nil {
			return err
		}
		s.FlowControl = flow
	}
	opts.Settings = &s
	return nil
}
