package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/vistara-dashboard/chatbots"
	"github.com/jrsteele09/vistara-dashboard/guides"
	apperrors "github.com/jrsteele09/vistara-dashboard/internal/errors"
	"github.com/jrsteele09/vistara-dashboard/query"
	"github.com/rs/zerolog/log"
)

const maxChatMessageLength = 2000

type chatbotView struct {
	Bots     []chatbots.Chatbot
	Selected *chatbots.Chatbot
	History  []chatbots.Message
}

func (s *Server) loadChatbots(r *http.Request, cid, botID string) (chatbotView, error) {
	res := fetch(r, query.Keys.Chatbots.List(cid), func(ctx context.Context) ([]chatbots.Chatbot, error) {
		return s.api.Chatbots.List(ctx, cid)
	})
	if res.Err != nil {
		return chatbotView{}, res.Err
	}

	view := chatbotView{Bots: res.Data}
	for i := range res.Data {
		bot := res.Data[i]
		if !bot.IsActive {
			continue
		}
		if botID == "" || bot.ID == botID {
			view.Selected = &bot
			break
		}
	}
	if view.Selected != nil {
		ws, _ := WorkspaceFrom(r.Context())
		view.History = ws.Chats.History(view.Selected.ID)
	}
	return view, nil
}

// ChatbotHandler shows the client's chatbots and the transcript of the
// selected one.
func (s *Server) ChatbotHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, err := s.resolveScope(r)
		if err != nil {
			s.pageFailed(w, r, err, "Chatbot")
			return
		}
		view := chatbotView{}
		if scope.ID != "" {
			view, err = s.loadChatbots(r, scope.ID, r.URL.Query().Get("bot"))
			if err != nil {
				s.pageFailed(w, r, err, "Chatbot")
				return
			}
		}
		s.renderPage(w, r, http.StatusOK, "chatbot.html", pageData{
			Title:  "Chatbot",
			Active: "chatbot",
			Scope:  scope,
			Data:   view,
		})
	}
}

// ChatbotMessageHandler sends one message and records the exchange.
func (s *Server) ChatbotMessageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		scope, err := s.resolveScope(r)
		if err != nil {
			s.pageFailed(w, r, err, "Chatbot")
			return
		}
		ws, _ := WorkspaceFrom(r.Context())
		botID := r.PathValue("id")
		message := strings.TrimSpace(r.FormValue("message"))

		switch {
		case message == "":
			err = invalidField("message", "is required")
		case len(message) > maxChatMessageLength:
			err = invalidField("message", "is too long")
		default:
			var reply *chatbots.Reply
			reply, err = s.api.Chatbots.SendMessage(r.Context(), botID, ws.ID+":"+botID, message)
			if err == nil {
				now := s.now()
				ws.Chats.Append(botID,
					chatbots.Message{Role: chatbots.RoleUser, Content: message, SentAt: now},
					chatbots.Message{Role: chatbots.RoleAssistant, Content: reply.Reply, SentAt: now},
				)
				log.Debug().Str("bot", botID).Int64("latency_ms", reply.LatencyMs).Msg("chatbot replied")
			}
		}
		if err != nil {
			view, loadErr := s.loadChatbots(r, scope.ID, botID)
			if loadErr != nil {
				s.pageFailed(w, r, loadErr, "Chatbot")
				return
			}
			s.actionFailed(w, r, err, "chatbot.html", pageData{
				Title:  "Chatbot",
				Active: "chatbot",
				Scope:  scope,
				Form:   map[string]string{"message": message},
				Data:   view,
			})
			return
		}

		redirectSuccess(w, r, RouteChatbot+"?"+url.Values{"client": {scope.ID}, "bot": {botID}}.Encode())
	}
}

// GuidesHandler lists the curated guides.
func (s *Server) GuidesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := fetch(r, query.Keys.Guides.List(), func(ctx context.Context) ([]guides.Guide, error) {
			return s.api.Guides.List(ctx)
		})
		if res.Err != nil {
			s.pageFailed(w, r, res.Err, "Guides")
			return
		}
		s.renderPage(w, r, http.StatusOK, "guides.html", pageData{
			Title:  "Guides",
			Active: "guides",
			Data:   res.Data,
		})
	}
}

// GuideHandler shows one guide by slug.
func (s *Server) GuideHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := r.PathValue("slug")
		res := fetch(r, query.Keys.Guides.Detail(slug), func(ctx context.Context) (*guides.Guide, error) {
			return s.api.Guides.Get(ctx, slug)
		})
		if res.Err != nil {
			s.pageFailed(w, r, res.Err, "Guide")
			return
		}
		s.renderPage(w, r, http.StatusOK, "guide.html", pageData{
			Title:  res.Data.Title,
			Active: "guides",
			Data:   res.Data,
		})
	}
}

// ThemeHandler persists the chosen theme and returns to the page it came from.
func (s *Server) ThemeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		back := RouteDashboard
		if ref, err := url.Parse(r.Referer()); err == nil && ref.Host == r.Host {
			back = safeNext(ref.RequestURI())
		}

		ws, _ := WorkspaceFrom(r.Context())
		if err := ws.Session.SetTheme(r.Context(), r.FormValue("theme")); err != nil {
			if errors.Is(err, apperrors.ErrInvalidInput) {
				redirectWithError(w, r, back, "Unknown theme")
				return
			}
			log.Err(err).Msg("failed to save theme")
			redirectWithError(w, r, back, "Could not save the theme")
			return
		}
		redirectSuccess(w, r, back)
	}
}
