package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Public routes
	RouteRoot             = "/"
	RouteLogin            = "/login"
	RouteLogout           = "/logout"
	RouteAcceptInvitation = "/invitations/accept"
	RouteHealth           = "/healthz"

	// Authenticated routes
	RouteDashboard        = "/dashboard"
	RouteWorkflows        = "/workflows"
	RouteWorkflow         = "/workflows/{id}"
	RouteExecutions       = "/executions"
	RouteExecutionsStream = "/executions/stream"
	RouteChatbot          = "/chatbot"
	RouteChatbotMessages  = "/chatbot/{id}/messages"
	RouteGuides           = "/guides"
	RouteGuide            = "/guides/{slug}"
	RouteSettingsTheme    = "/settings/theme"

	// Admin routes
	RouteAdminClients          = "/admin/clients"
	RouteAdminClient           = "/admin/clients/{id}"
	RouteAdminClientDelete     = "/admin/clients/{id}/delete"
	RouteAdminClientStatus     = "/admin/clients/{id}/status"
	RouteAdminUsers            = "/admin/users"
	RouteAdminUser             = "/admin/users/{id}"
	RouteAdminUserDelete       = "/admin/users/{id}/delete"
	RouteAdminInvitations      = "/admin/invitations"
	RouteAdminInvitationResend = "/admin/invitations/{id}/resend"
	RouteAdminInvitationRevoke = "/admin/invitations/{id}/revoke"
	RouteAdminInvitationLink   = "/admin/invitations/{id}/link"
	RouteAdminCategories       = "/admin/categories"
	RouteAdminCategory         = "/admin/categories/{id}"
	RouteAdminCategoryDelete   = "/admin/categories/{id}/delete"
	RouteAdminWorkflows        = "/admin/workflows"
	RouteAdminWorkflowSync     = "/admin/workflows/sync"
	RouteAdminWorkflowDelete   = "/admin/workflows/{id}/delete"
	RouteAdminMetricsSync      = "/admin/metrics/sync"

	// Static Asset Routes (patterns)
	RouteStatic = "/static/{file}"
)
