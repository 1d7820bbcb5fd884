package server

import (
	"net/http"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteRoot+"{$}", ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())

	// LOGIN
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginPageHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.HTMLMiddleWare(s.LoginRateLimit)...))
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteAcceptInvitation, ChainMiddleware(s.AcceptInvitationPageHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAcceptInvitation, ChainMiddleware(s.AcceptInvitationHandler(), s.HTMLMiddleWare(s.LoginRateLimit)...))

	// Signed-in routes
	user := s.HTMLMiddleWare(s.RequireUser())
	s.RegisterRouteHandler("GET "+RouteDashboard, ChainMiddleware(s.DashboardHandler(), user...))
	s.RegisterRouteHandler("GET "+RouteWorkflows, ChainMiddleware(s.WorkflowsHandler(), user...))
	s.RegisterRouteHandler("GET "+RouteWorkflow, ChainMiddleware(s.WorkflowHandler(), user...))
	s.RegisterRouteHandler("POST "+RouteWorkflow, ChainMiddleware(s.UpdateWorkflowHandler(), user...))
	s.RegisterRouteHandler("GET "+RouteExecutions, ChainMiddleware(s.ExecutionsHandler(), user...))
	s.RegisterRouteHandler("GET "+RouteExecutionsStream, ChainMiddleware(s.ExecutionsStreamHandler(), user...))
	s.RegisterRouteHandler("GET "+RouteChatbot, ChainMiddleware(s.featureGate("chatbot", s.ChatbotHandler()), user...))
	s.RegisterRouteHandler("POST "+RouteChatbotMessages, ChainMiddleware(s.featureGate("chatbot", s.ChatbotMessageHandler()), user...))
	s.RegisterRouteHandler("GET "+RouteGuides, ChainMiddleware(s.featureGate("guides", s.GuidesHandler()), user...))
	s.RegisterRouteHandler("GET "+RouteGuide, ChainMiddleware(s.featureGate("guides", s.GuideHandler()), user...))
	s.RegisterRouteHandler("POST "+RouteSettingsTheme, ChainMiddleware(s.ThemeHandler(), user...))

	// Admin routes
	admin := s.HTMLMiddleWare(s.RequireAdmin())
	s.RegisterRouteHandler("GET "+RouteAdminClients, ChainMiddleware(s.AdminClientsHandler(), admin...))
	s.RegisterRouteHandler("POST "+RouteAdminClients, ChainMiddleware(s.AdminCreateClientHandler(), admin...))
	s.RegisterRouteHandler("POST "+RouteAdminClient, ChainMiddleware(s.AdminUpdateClientHandler(), admin...))
	s.RegisterRouteHandler("POST "+RouteAdminClientDelete, ChainMiddleware(s.AdminDeleteClientHandler(), admin...))
	s.RegisterRouteHandler("GET "+RouteAdminClientStatus, ChainMiddleware(s.AdminClientStatusHandler(), admin...))
	s.RegisterRouteHandler("GET "+RouteAdminUsers, ChainMiddleware(s.AdminUsersHandler(), admin...))
	s.RegisterRouteHandler("POST "+RouteAdminUser, ChainMiddleware(s.AdminUpdateUserHandler(), admin...))
	s.RegisterRouteHandler("POST "+RouteAdminUserDelete, ChainMiddleware(s.AdminDeleteUserHandler(), admin...))
	s.RegisterRouteHandler("POST "+RouteAdminInvitations, ChainMiddleware(s.AdminCreateInvitationHandler(), admin...))
	s.RegisterRouteHandler("POST "+RouteAdminInvitationResend, ChainMiddleware(s.AdminResendInvitationHandler(), admin...))
	s.RegisterRouteHandler("POST "+RouteAdminInvitationRevoke, ChainMiddleware(s.AdminRevokeInvitationHandler(), admin...))
	s.RegisterRouteHandler("GET "+RouteAdminInvitationLink, ChainMiddleware(s.AdminInvitationLinkHandler(), admin...))
	s.RegisterRouteHandler("GET "+RouteAdminCategories, ChainMiddleware(s.AdminCategoriesHandler(), admin...))
	s.RegisterRouteHandler("POST "+RouteAdminCategories, ChainMiddleware(s.AdminCreateCategoryHandler(), admin...))
	s.RegisterRouteHandler("POST "+RouteAdminCategory, ChainMiddleware(s.AdminUpdateCategoryHandler(), admin...))
	s.RegisterRouteHandler("POST "+RouteAdminCategoryDelete, ChainMiddleware(s.AdminDeleteCategoryHandler(), admin...))
	s.RegisterRouteHandler("GET "+RouteAdminWorkflows, ChainMiddleware(s.AdminWorkflowsHandler(), admin...))
	s.RegisterRouteHandler("POST "+RouteAdminWorkflows, ChainMiddleware(s.AdminImportWorkflowHandler(), admin...))
	s.RegisterRouteHandler("POST "+RouteAdminWorkflowSync, ChainMiddleware(s.featureGate("sync", s.AdminWorkflowSyncHandler()), admin...))
	s.RegisterRouteHandler("POST "+RouteAdminWorkflowDelete, ChainMiddleware(s.AdminDeleteWorkflowHandler(), admin...))
	s.RegisterRouteHandler("POST "+RouteAdminMetricsSync, ChainMiddleware(s.featureGate("sync", s.AdminMetricsSyncHandler()), admin...))

	s.RegisterRouteHandler("GET "+RouteStatic, ChainMiddleware(s.serveFileHandler(), s.StaticMiddleware()...))
}

// featureGate answers 404 for routes whose feature flag is off.
func (s *Server) featureGate(flag string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.features[flag] {
			http.NotFound(w, r)
			return
		}
		next(w, r)
	}
}
