package intent

import (
	"errors"
	"strings"
)

// ErrNoSession 请求里没有可用的 output context。
var ErrNoSession = errors.New("no output context to derive session id from")

// OutputContext 只关心 name，形如 projects/p/agent/sessions/<id>/contexts/<ctx>。
type OutputContext struct {
	Name string `json:"name"`
}

// WebhookRequest 是 NLU 回调的请求体。outputContexts 既可能在顶层也可能在 queryResult 里。
type WebhookRequest struct {
	QueryResult struct {
		Intent struct {
			DisplayName string `json:"displayName"`
		} `json:"intent"`
		Parameters     Params          `json:"parameters"`
		OutputContexts []OutputContext `json:"outputContexts"`
	} `json:"queryResult"`
	OutputContexts []OutputContext `json:"outputContexts"`
}

// WebhookResponse 是回给 NLU 的响应体。
type WebhookResponse struct {
	FulfillmentText string `json:"fulfillmentText"`
}

// ToRequest 抽出 intent、会话和参数。
func (w WebhookRequest) ToRequest() (Request, error) {
	contexts := w.OutputContexts
	if len(contexts) == 0 {
		contexts = w.QueryResult.OutputContexts
	}
	if len(contexts) == 0 {
		return Request{}, ErrNoSession
	}
	session := ExtractSessionID(contexts[0].Name)
	if session == "" {
		return Request{}, ErrNoSession
	}

	params := w.QueryResult.Parameters
	if params == nil {
		params = Params{}
	}
	return Request{
		Intent:  w.QueryResult.Intent.DisplayName,
		Session: session,
		Params:  params,
	}, nil
}

// ExtractSessionID 优先取 /sessions/<id>/contexts/ 中的 <id>，否则取最后一个 "/" 之后的部分。
func ExtractSessionID(name string) string {
	const sessions, contexts = "/sessions/", "/contexts/"
	if i := strings.Index(name, sessions); i >= 0 {
		rest := name[i+len(sessions):]
		if j := strings.Index(rest, contexts); j >= 0 {
			return rest[:j]
		}
	}
	return strings.TrimSpace(name[strings.LastIndex(name, "/")+1:])
}
