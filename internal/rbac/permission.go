package rbac

import (
	"fmt"
	"strings"
)

// Permission is a named capability that gates one class of actions. The set
// is closed: values come from the package variables below or ParsePermission,
// and the zero value grants nothing.
type Permission struct {
	code string
}

// PermissionInfo describes one catalog entry.
type PermissionInfo struct {
	Code        string `json:"code"`
	Group       string `json:"group"`
	Description string `json:"description"`
}

var (
	catalog []PermissionInfo
	byCode  = map[string]Permission{}
	aliases = map[string]Permission{}
)

func define(group, code, description string, legacy ...string) Permission {
	p := Permission{code: code}
	byCode[code] = p
	for _, alias := range legacy {
		aliases[strings.ToLower(alias)] = p
	}
	catalog = append(catalog, PermissionInfo{Code: code, Group: group, Description: description})
	return p
}

// Accounts and access control.
var (
	UserView         = define("users", "USER_VIEW", "List and inspect user accounts", "user:view", "user:list")
	UserManage       = define("users", "USER_MANAGE", "Enable, disable or lock user accounts", "user:manage", "user:update")
	UserRoleManage   = define("users", "USER_ROLE_MANAGE", "Assign roles to user accounts", "user:role:manage")
	RoleView         = define("roles", "ROLE_VIEW", "List roles and their permissions", "role:view")
	RoleManage       = define("roles", "ROLE_MANAGE", "Change the permissions granted by a role", "role:manage")
	PermissionView   = define("roles", "PERMISSION_VIEW", "Browse the permission catalog", "permission:view")
	OperationLogView = define("system", "OPERATION_LOG_VIEW", "Read the operation log", "SYSTEM_LOG_VIEW", "system:log:view")
	SystemConfigView = define("system", "SYSTEM_CONFIG_VIEW", "Read system settings and job health", "system:config:view")
	SystemConfigEdit = define("system", "SYSTEM_CONFIG_MANAGE", "Change system settings", "system:config:manage")
)

// Kindergarten operations.
var (
	DashboardView            = define("dashboard", "DASHBOARD_VIEW", "Open the dashboard", "dashboard:view")
	PrincipalPerformanceView = define("dashboard", "PRINCIPAL_PERFORMANCE_VIEW", "Read principal performance reports", "principal:performance")
	TeacherView              = define("teachers", "TEACHER_VIEW", "List and inspect teachers", "teacher:view")
	TeacherManage            = define("teachers", "TEACHER_MANAGE", "Create and edit teachers", "teacher:manage")
	TeachingCenterView       = define("teachers", "TEACHING_CENTER_VIEW", "Open the teaching center", "teaching:center:view")
	StudentView              = define("students", "STUDENT_VIEW", "List and inspect students", "student:view", "CHILDREN_VIEW")
	StudentManage            = define("students", "STUDENT_MANAGE", "Create and edit students", "student:manage", "student:update")
	ParentView               = define("parents", "PARENT_VIEW", "List and inspect parents", "parent:view", "parent:list", "PARENT_CENTER_VIEW")
	ParentManage             = define("parents", "PARENT_MANAGE", "Create and edit parents", "parent:manage")
	ClassView                = define("classes", "CLASS_VIEW", "List and inspect classes", "class:view")
	ClassManage              = define("classes", "CLASS_MANAGE", "Create and edit classes", "class:manage")
	AssessmentView           = define("classes", "ASSESSMENT_VIEW", "Read child assessments", "assessment:view")
	TaskView                 = define("tasks", "TASK_VIEW", "List and inspect tasks", "task:view")
	TaskManage               = define("tasks", "TASK_MANAGE", "Create and assign tasks", "task:manage")
)

// Enrollment and marketing.
var (
	EnrollmentView                = define("enrollment", "ENROLLMENT_VIEW", "Read enrollment plans and overview", "enrollment:view", "enrollment:overview:view")
	EnrollmentManage              = define("enrollment", "ENROLLMENT_MANAGE", "Edit enrollment plans and applications", "enrollment:manage")
	EnrollmentQuotaManage         = define("enrollment", "ENROLLMENT_QUOTA_MANAGE", "Change enrollment quotas", "enrollment:quota:manage")
	EnrollmentConsultationManage  = define("enrollment", "ENROLLMENT_CONSULTATION_MANAGE", "Handle enrollment consultations", "enrollment:consultation:manage")
	EnrollmentInterviewView       = define("enrollment", "ENROLLMENT_INTERVIEW_VIEW", "Read enrollment interviews", "enrollment:interview:view")
	EnrollmentInterviewManage     = define("enrollment", "ENROLLMENT_INTERVIEW_MANAGE", "Schedule and record enrollment interviews", "enrollment:interview:manage")
	CustomerPoolManage            = define("enrollment", "CUSTOMER_POOL_MANAGE", "Work the customer pool", "CUSTOMER_POOL_CENTER_MANAGE", "customer:pool:manage")
	ActivityView                  = define("activities", "ACTIVITY_VIEW", "List and inspect activities", "activity:view")
	ActivityManage                = define("activities", "ACTIVITY_MANAGE", "Create, edit and publish activities", "activity:manage", "activity:create", "activity:update")
	ActivityRegistrationManage    = define("activities", "ACTIVITY_REGISTRATION_MANAGE", "Review activity registrations", "activity:registration:manage")
	AdvertisementView             = define("marketing", "ADVERTISEMENT_VIEW", "List advertisements", "advertisement:view")
	AdvertisementManage           = define("marketing", "ADVERTISEMENT_MANAGE", "Create and publish advertisements", "advertisement:manage")
	PosterTemplateView            = define("marketing", "POSTER_TEMPLATE_VIEW", "Browse poster templates", "poster:template:view")
	PosterTemplateManage          = define("marketing", "POSTER_TEMPLATE_MANAGE", "Edit poster templates", "poster:template:manage")
	NotificationView              = define("messaging", "NOTIFICATION_VIEW", "Read notifications", "notification:view")
	NotificationManage            = define("messaging", "NOTIFICATION_MANAGE", "Send notifications", "notification:manage")
	FileUpload                    = define("files", "FILE_UPLOAD", "Upload files", "file:upload")
	FileManage                    = define("files", "FILE_MANAGE", "Delete and organize files", "file:manage")
	AIAssistantView               = define("ai", "AI_ASSISTANT_VIEW", "Use the AI assistant", "ai:assistant:view")
	AIAnalysisView                = define("ai", "AI_ANALYSIS_VIEW", "Read AI analysis reports", "ai:analysis:view")
)

// String returns the canonical permission code.
func (p Permission) String() string { return p.code }

// IsZero reports whether p is the zero Permission.
func (p Permission) IsZero() bool { return p.code == "" }

// MarshalText encodes the canonical code.
func (p Permission) MarshalText() ([]byte, error) {
	if p.code == "" {
		return nil, fmt.Errorf("rbac: marshal zero permission")
	}
	return []byte(p.code), nil
}

// UnmarshalText accepts canonical codes and legacy aliases.
func (p *Permission) UnmarshalText(text []byte) error {
	parsed, ok := ParsePermission(string(text))
	if !ok {
		return fmt.Errorf("rbac: unknown permission %q", string(text))
	}
	*p = parsed
	return nil
}

// ParsePermission resolves a canonical code or a legacy alias such as
// "activity:view". Unknown codes report false.
func ParsePermission(code string) (Permission, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Permission{}, false
	}
	if p, ok := byCode[code]; ok {
		return p, true
	}
	if p, ok := aliases[strings.ToLower(code)]; ok {
		return p, true
	}
	canonical := strings.ToUpper(strings.NewReplacer(":", "_", "-", "_", ".", "_").Replace(code))
	p, ok := byCode[canonical]
	return p, ok
}

// Catalog lists every permission in declaration order.
func Catalog() []PermissionInfo {
	out := make([]PermissionInfo, len(catalog))
	copy(out, catalog)
	return out
}

// AllPermissions returns every permission in declaration order.
func AllPermissions() []Permission {
	out := make([]Permission, 0, len(catalog))
	for _, info := range catalog {
		out = append(out, byCode[info.Code])
	}
	return out
}
