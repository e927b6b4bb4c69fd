package body

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/tonelab/venue/config"
	"github.com/tonelab/venue/server/resp"
	"github.com/tonelab/venue/server/util"
)

// QueryParam represents a single query parameter with one key mapping to potentially many values
type QueryParam struct {
	Key   string
	Value []string
}

// QueryParams represents all query parameters for a URL. Bracketed keys are collapsed to their non-bracketed
// equivalents, so ?tag[]=a&tag=b yields one QueryParam with key=tag and value=[a,b].
type QueryParams struct {
	Params []QueryParam
}

// Get gets a single QueryParam from the given QueryParams
func (p *QueryParams) Get(key string) *QueryParam {
	for i := range p.Params {
		if p.Params[i].Key == key {
			return &p.Params[i]
		}
	}

	return nil
}

// GetFirst gets the first value for a QueryParam from the given QueryParams
// If the key does not map a param, or there are no values, an empty string is returned
func (p *QueryParams) GetFirst(key string) string {
	param := p.Get(key)
	if param == nil || len(param.Value) == 0 {
		return ""
	}

	return param.Value[0]
}

// GetIntOrDefault parses the first value of key as an int, falling back to def.
func (p *QueryParams) GetIntOrDefault(key string, def int) int {
	first := p.GetFirst(key)
	if first == "" {
		return def
	}

	if tmp, err := strconv.Atoi(first); err == nil {
		return tmp
	}

	return def
}

// Add adds or appends a []string to the QueryParam that maps to the given key.
func (p *QueryParams) Add(key string, value []string) {
	param := p.Get(key)
	if param == nil {
		p.Params = append(p.Params, QueryParam{key, value})
	} else {
		param.Value = append(param.Value, value...)
	}
}

func ReadQueryParams(r *http.Request) QueryParams {
	params := QueryParams{}
	for key, value := range r.URL.Query() {
		key = strings.TrimSuffix(key, "[]")
		params.Add(key, value)
	}
	return params
}

// ReadJSONObject reads a JSON object body, bounded by the payload limit, and returns its raw bytes.
// Writes a 4xx response and returns false when the body is missing, too large or not an object.
func ReadJSONObject(cfg *config.Config, w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if !util.RequireJSON(w, r) {
		return nil, false
	}

	r.Body = http.MaxBytesReader(w, r.Body, int64(cfg.Server.Limits.MaxPayloadSize))
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			resp.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return nil, false
		}
		resp.WriteBadRequest(w, "Could not read request body")
		return nil, false
	}

	raw = bytes.TrimSpace(raw)
	var fields map[string]json.RawMessage
	if len(raw) == 0 || raw[0] != '{' || json.Unmarshal(raw, &fields) != nil {
		resp.WriteBadRequest(w, "Invalid JSON body")
		return nil, false
	}

	return raw, true
}

// ReadUpload parses a multipart upload and returns the file sent under field.
// The caller must call CloseFiles on the parsed result.
func ReadUpload(cfg *config.Config, w http.ResponseWriter, r *http.Request, field string) (*util.ParsedMultipart, *util.MultipartFile, error) {
	maxMemory := int64(cfg.Server.Limits.MaxMultipartMem)
	maxFileSize := int64(cfg.Server.Limits.MaxFileSize)

	parsed, err := util.ParseMultipart(w, r, maxMemory, maxFileSize)
	if err != nil {
		return nil, nil, err
	}

	return parsed, parsed.FileByKey(field), nil
}
