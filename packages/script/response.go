package script

import (
	"mime"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	csthttp "github.com/abdul-hamid-achik/httpcst/packages/http"
)

type responseAPI struct {
	resp *csthttp.Response
	body gjson.Result
}

func newResponseAPI(resp *csthttp.Response) *responseAPI {
	api := &responseAPI{resp: resp}
	if resp != nil && resp.IsJSON() && gjson.ValidBytes(resp.Body) {
		api.body = gjson.ParseBytes(resp.Body)
	}
	return api
}

func (api *responseAPI) object() map[string]any {
	if api.resp == nil {
		return map[string]any{}
	}
	mimeType, params, _ := mime.ParseMediaType(api.resp.ContentType())
	return map[string]any{
		"status":     api.resp.StatusCode,
		"statusText": strings.TrimSpace(strings.TrimPrefix(api.resp.Status, strconv.Itoa(api.resp.StatusCode))),
		"body":       api.bodyValue(),
		"duration":   api.resp.DurationMs(),
		"headers": map[string]any{
			"valueOf": func(name string) any {
				if v := api.resp.Header(name); v != "" {
					return v
				}
				return nil
			},
			"valuesOf": func(name string) []string {
				return api.resp.Headers.Values(name)
			},
		},
		"contentType": map[string]any{
			"mimeType": mimeType,
			"charset":  params["charset"],
		},
		"jsonPath": api.jsonPath,
	}
}

// bodyValue is the decoded JSON document when the response is JSON and the
// raw text otherwise.
func (api *responseAPI) bodyValue() any {
	if api.body.Exists() {
		return api.body.Value()
	}
	return api.resp.BodyString()
}

// jsonPath evaluates a gjson path against the body, yielding null when the
// path does not match.
func (api *responseAPI) jsonPath(path string) any {
	result := gjson.GetBytes(api.resp.Body, path)
	if !result.Exists() {
		return nil
	}
	return result.Value()
}
