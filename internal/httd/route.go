package httd

import (
	"net/url"
	"sort"
	"strings"

	"github.com/nyxcord/nyxcord/internal/nyxerr"
)

// Method is the small closed set of HTTP verbs the REST surface uses.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodPatch  Method = "PATCH"
	MethodDelete Method = "DELETE"
)

func (m Method) String() string { return string(m) }

// AuthPolicy says whether an endpoint requires the bot token.
type AuthPolicy int

const (
	AuthBot AuthPolicy = iota
	AuthNoBot
)

func (a AuthPolicy) RequiresBot() bool { return a == AuthBot }

// majorParameterAllowlist is fixed and ordered: the order here is the order
// major-parameter name=value pairs are concatenated into a bucket key,
// regardless of the order they appear in the route template.
var majorParameterAllowlist = []string{"guild.id", "channel.id", "webhook.id", "interaction.token"}

// Endpoint is an uncompiled route: a method, a brace-templated path, and an
// auth policy.
type Endpoint struct {
	Method Method
	Route  string
	Auth   AuthPolicy
}

func NewEndpoint(method Method, route string) Endpoint {
	return Endpoint{Method: method, Route: route, Auth: AuthBot}
}

func NewEndpointNoBotAuth(method Method, route string) Endpoint {
	return Endpoint{Method: method, Route: route, Auth: AuthNoBot}
}

// QueryValues is a stable-ordered query parameter set: encode() sorts by key
// so the resulting url is deterministic across calls with the same inputs.
type QueryValues struct {
	values map[string]string
	keys   []string
}

func NewQueryValues() *QueryValues {
	return &QueryValues{values: map[string]string{}}
}

func (q *QueryValues) Insert(key, value string) {
	if _, exists := q.values[key]; !exists {
		q.keys = append(q.keys, key)
	}
	q.values[key] = value
}

func (q *QueryValues) InsertOpt(key string, value *string) {
	if value != nil {
		q.Insert(key, *value)
	}
}

func (q *QueryValues) IsEmpty() bool { return len(q.values) == 0 }

func (q *QueryValues) Encode() string {
	keys := append([]string(nil), q.keys...)
	sort.Strings(keys)
	v := url.Values{}
	for _, k := range keys {
		v.Set(k, q.values[k])
	}
	return v.Encode()
}

// CompiledEndpoint is the output of compiling an Endpoint against concrete
// parameters and query values.
type CompiledEndpoint struct {
	Method      Method
	Route       string
	Auth        AuthPolicy
	Path        string
	URL         string
	MajorParams string
}

// RateLimitKey returns the limiter key for this endpoint. With an empty
// bucketHash (no bucket identifier learned from the server yet) it is
// METHOD + template + major parameters key; otherwise it is bucketHash
// followed by the major parameters key, when there is one.
func (c CompiledEndpoint) RateLimitKey(bucketHash string) string {
	if bucketHash == "" {
		return string(c.Method) + ":" + c.Route + ":" + c.MajorParams
	}
	if c.MajorParams == "" {
		return bucketHash
	}
	return bucketHash + ":" + c.MajorParams
}

// Compile substitutes placeholders in endpoint.Route with params, builds the
// major-parameters key in allowlist order, and appends an encoded query
// string.
func Compile(endpoint Endpoint, query *QueryValues, params map[string]string) (CompiledEndpoint, error) {
	path, majorParams, err := compileRoute(endpoint.Route, params)
	if err != nil {
		return CompiledEndpoint{}, err
	}

	full := path
	if query != nil && !query.IsEmpty() {
		full += "?" + query.Encode()
	}

	return CompiledEndpoint{
		Method:      endpoint.Method,
		Route:       endpoint.Route,
		Auth:        endpoint.Auth,
		Path:        path,
		URL:         full,
		MajorParams: majorParams,
	}, nil
}

// compileRoute performs textual brace substitution and collects the
// major-parameter key, matching the reference implementation's
// compile_route: an unterminated or empty placeholder is a route-template
// error; a placeholder absent from params is a missing-parameter error.
func compileRoute(route string, params map[string]string) (string, string, error) {
	var path strings.Builder
	majorValues := map[string]string{}

	i := 0
	for i < len(route) {
		c := route[i]
		if c == '{' {
			end := strings.IndexByte(route[i:], '}')
			if end < 0 {
				return "", "", nyxerr.FromProtocol(nyxerr.NewInvalidRouteTemplate(route))
			}
			name := route[i+1 : i+end]
			if name == "" {
				return "", "", nyxerr.FromProtocol(nyxerr.NewInvalidRouteTemplate(route))
			}
			value, ok := params[name]
			if !ok {
				return "", "", nyxerr.FromProtocol(nyxerr.NewMissingRouteParam(name))
			}
			path.WriteString(value)
			if isMajorParameter(name) {
				majorValues[name] = value
			}
			i += end + 1
			continue
		}
		path.WriteByte(c)
		i++
	}

	var parts []string
	for _, name := range majorParameterAllowlist {
		if v, ok := majorValues[name]; ok {
			parts = append(parts, name+"="+v)
		}
	}

	return path.String(), strings.Join(parts, ":"), nil
}

func isMajorParameter(name string) bool {
	for _, m := range majorParameterAllowlist {
		if m == name {
			return true
		}
	}
	return false
}
