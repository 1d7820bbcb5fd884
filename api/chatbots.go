package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jrsteele09/vistara-dashboard/apiclient"
	"github.com/jrsteele09/vistara-dashboard/chatbots"
)

// ChatbotsAPI backs the chatbot testing screen.
type ChatbotsAPI struct {
	c *apiclient.Client
}

func (a *ChatbotsAPI) List(ctx context.Context, clientID string) ([]chatbots.Chatbot, error) {
	ro := &apiclient.RequestOptions{}
	if clientID != "" {
		ro.Query = url.Values{"client_id": {clientID}}
	}
	return apiclient.Call[[]chatbots.Chatbot](ctx, a.c, http.MethodGet, "/chatbots/", nil, ro)
}

func (a *ChatbotsAPI) Get(ctx context.Context, id string) (*chatbots.Chatbot, error) {
	if err := required("id", id); err != nil {
		return nil, err
	}
	return apiclient.CallRequired[*chatbots.Chatbot](ctx, a.c, http.MethodGet, apiclient.Path("/chatbots/%s", id), nil, nil)
}

// SendMessage posts a message to the chatbot. An empty sessionID starts a new conversation.
func (a *ChatbotsAPI) SendMessage(ctx context.Context, id, sessionID, message string) (*chatbots.Reply, error) {
	if err := firstError(required("id", id), required("message", message)); err != nil {
		return nil, err
	}
	body := chatbots.SendRequest{SessionID: sessionID, Message: message}
	return apiclient.CallRequired[*chatbots.Reply](ctx, a.c, http.MethodPost, apiclient.Path("/chatbots/%s/messages", id), body, nil)
}
