package handler

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
)

// HTTPTriggerRequest represents the structure of the JSON payload for HTTP triggers.
type HTTPTriggerRequest struct {
	Data struct {
		Req struct {
			URL             string              `json:"Url"`
			Method          string              `json:"Method"`
			Query           map[string]string   `json:"Query"`
			Headers         map[string][]string `json:"Headers"`
			Params          map[string]string   `json:"Params"`
			Body            string              `json:"Body"`
			IsBase64Encoded bool                `json:"isBase64Encoded"`
		} `json:"req"`
	} `json:"Data"`
	Metadata map[string]any `json:"Metadata"`
}

// HTTPTriggerResponse represents the structure of the JSON response for HTTP triggers.
type HTTPTriggerResponse struct {
	Outputs struct {
		Res struct {
			StatusCode int               `json:"statusCode"`
			Headers    map[string]string `json:"headers"`
			Body       string            `json:"body"`
		} `json:"res"`
	} `json:"Outputs"`
	Logs        []string `json:"Logs,omitempty"`
	ReturnValue any      `json:"ReturnValue,omitempty"`
}

// HandleHttpTrigger adapts the Azure Functions JSON invocation to a plain HTTP
// request, serves it with next and wraps the recorded response for the host.
func (d *Dependencies) HandleHttpTrigger(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var invokeReq HTTPTriggerRequest
		if err := json.NewDecoder(r.Body).Decode(&invokeReq); err != nil {
			slog.Error("failed to unmarshal HTTP trigger request", "error", err)
			http.Error(w, "Failed to unmarshal request", http.StatusBadRequest)
			return
		}

		reqData := invokeReq.Data.Req
		inner, err := http.NewRequestWithContext(r.Context(), reqData.Method, reqData.URL, triggerBody(reqData.Body, reqData.IsBase64Encoded))
		if err != nil {
			slog.Error("failed to create internal request", "method", reqData.Method, "url", reqData.URL, "error", err)
			http.Error(w, "Failed to create internal request", http.StatusInternalServerError)
			return
		}
		for k, values := range reqData.Headers {
			for _, v := range values {
				inner.Header.Add(k, v)
			}
		}
		slog.Info("processing wrapped HTTP request", "method", inner.Method, "path", inner.URL.Path)

		recorder := httptest.NewRecorder()
		next.ServeHTTP(recorder, inner)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(triggerResponse(recorder.Result())); err != nil {
			slog.Error("failed to encode HTTP trigger response", "error", err)
		}
	}
}

// triggerBody decodes the forwarded body. Some hosts send base64 without
// setting the flag, so decoding is attempted either way.
func triggerBody(body string, isBase64 bool) io.Reader {
	if body == "" {
		return http.NoBody
	}
	decoded, err := base64.StdEncoding.DecodeString(body)
	if err == nil {
		return bytes.NewReader(decoded)
	}
	if isBase64 {
		slog.Warn("body flagged as base64 but failed to decode, using raw", "error", err)
	}
	return bytes.NewReader([]byte(body))
}

func triggerResponse(res *http.Response) HTTPTriggerResponse {
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()

	headers := make(map[string]string, len(res.Header))
	for k, v := range res.Header {
		headers[k] = v[0]
	}

	var out HTTPTriggerResponse
	out.Outputs.Res.StatusCode = res.StatusCode
	out.Outputs.Res.Headers = headers
	out.Outputs.Res.Body = string(body)
	return out
}
