// Package remote retrieves metric values for the configured displays from the
// metrics service over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/timzifer/metricdisplay/layout"
	"github.com/timzifer/metricdisplay/runtime/state"
	"github.com/timzifer/metricdisplay/telemetry"
)

// HostHeader carries the client's hostname so the service can tell displays apart.
const HostHeader = "REMOTE_HOST"

// DefaultURLTemplate addresses the service's getValue endpoint.
const DefaultURLTemplate = "{base}/getValue?id={metric}{display}"

// Options configure a Fetcher.
type Options struct {
	BaseURL     string
	Metric      string
	URLTemplate string
	Hostname    string
	Timeout     time.Duration
	Transform   string
	Padding     rune
	HTTPClient  *http.Client
	Logger      zerolog.Logger
	Collector   telemetry.Collector
}

// Fetcher resolves display identities to values.
type Fetcher struct {
	template  string
	hostname  string
	padding   rune
	client    *http.Client
	transform *vm.Program
	logger    zerolog.Logger
	collector telemetry.Collector
}

// New validates opts and prepares the URL template and optional transform.
func New(opts Options) (*Fetcher, error) {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		return nil, errors.New("remote: base url is required")
	}
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	base = strings.TrimRight(base, "/")

	tmpl := opts.URLTemplate
	if tmpl == "" {
		tmpl = DefaultURLTemplate
	}
	if !strings.Contains(tmpl, "{display}") {
		return nil, fmt.Errorf("remote: url template %q lacks {display}", tmpl)
	}
	tmpl = strings.NewReplacer("{base}", base, "{metric}", opts.Metric).Replace(tmpl)

	hostname := opts.Hostname
	if hostname == "" {
		name, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("remote: resolve hostname: %w", err)
		}
		hostname = name
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	collector := opts.Collector
	if collector == nil {
		collector = telemetry.Noop()
	}
	padding := opts.Padding
	if padding == 0 {
		padding = '0'
	}

	f := &Fetcher{
		template:  tmpl,
		hostname:  hostname,
		padding:   padding,
		client:    client,
		logger:    opts.Logger,
		collector: collector,
	}
	if src := strings.TrimSpace(opts.Transform); src != "" {
		env := map[string]interface{}{"value": float64(0), "id": 0}
		program, err := expr.Compile(src, expr.Env(env))
		if err != nil {
			return nil, fmt.Errorf("remote: compile transform: %w", err)
		}
		f.transform = program
	}
	return f, nil
}

// URL returns the request URL for id.
func (f *Fetcher) URL(id layout.Identity) string {
	return strings.ReplaceAll(f.template, "{display}", strconv.Itoa(int(id)))
}

// FetchValue requests the value of one display. ok is false for a soft miss:
// a body without a usable numeric "value". Zero is a valid value.
func (f *Fetcher) FetchValue(ctx context.Context, id layout.Identity) (decimal.Decimal, bool, error) {
	url := f.URL(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("remote: build request: %w", err)
	}
	// Set directly so the header name keeps its underscore and case.
	req.Header[HostHeader] = []string{f.hostname}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return decimal.Zero, false, &ConnectivityError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, false, &ConnectivityError{URL: url, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decimal.Zero, false, &StatusError{ID: id, StatusCode: resp.StatusCode}
	}

	value, ok := parseValue(body)
	if !ok {
		return decimal.Zero, false, nil
	}
	if f.transform == nil {
		return value, true, nil
	}
	transformed, err := f.applyTransform(value, id)
	if err != nil {
		f.logger.Debug().Err(err).Int("id", int(id)).Msg("transform failed")
		return decimal.Zero, false, nil
	}
	return transformed, true, nil
}

// FetchAll builds a frame for cfg in layout order. Misses and status errors
// become placeholders; a connectivity error aborts the cycle without a frame.
func (f *Fetcher) FetchAll(ctx context.Context, cfg layout.Configuration) (state.Frame, error) {
	frame := make(state.Frame, len(cfg))
	for i, entry := range cfg {
		value, ok, err := f.FetchValue(ctx, entry.ID)
		var status *StatusError
		switch {
		case errors.As(err, &status):
			f.collector.IncFetchMiss(telemetry.MissHTTP)
			f.logger.Debug().Int("id", int(entry.ID)).Int("status", status.StatusCode).Msg("value unavailable")
			frame[i] = Placeholder(entry.Digits)
		case err != nil:
			return nil, err
		case !ok:
			f.collector.IncFetchMiss(telemetry.MissSoft)
			f.logger.Debug().Int("id", int(entry.ID)).Msg("value missing")
			frame[i] = Placeholder(entry.Digits)
		default:
			frame[i] = Format(value, entry.Digits, f.padding)
		}
	}
	return frame, nil
}

func (f *Fetcher) applyTransform(value decimal.Decimal, id layout.Identity) (decimal.Decimal, error) {
	env := map[string]interface{}{"value": value.InexactFloat64(), "id": int(id)}
	out, err := vm.Run(f.transform, env)
	if err != nil {
		return decimal.Zero, err
	}
	switch v := out.(type) {
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	default:
		return decimal.Zero, fmt.Errorf("transform returned %T", out)
	}
}

// parseValue extracts "value" from a JSON object. Numbers and numeric strings
// are accepted.
func parseValue(body []byte) (decimal.Decimal, bool) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload map[string]interface{}
	if err := dec.Decode(&payload); err != nil {
		return decimal.Zero, false
	}
	raw, ok := payload["value"]
	if !ok {
		return decimal.Zero, false
	}
	var text string
	switch v := raw.(type) {
	case json.Number:
		text = v.String()
	case string:
		text = strings.TrimSpace(v)
	default:
		return decimal.Zero, false
	}
	value, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, false
	}
	return value, true
}
