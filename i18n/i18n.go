// Package i18n holds the user-facing message catalogs (Arabic and English).
package i18n

import (
	"context"
	"strings"
)

// DefaultLang is used when no language preference is known.
const DefaultLang = "ar"

var catalogs = map[string]map[string]string{
	"ar": {
		"required":             "مطلوب",
		"must_be_positive":     "يجب أن تكون القيمة أكبر من صفر",
		"must_not_be_negative": "لا يمكن أن تكون القيمة سالبة",
		"invalid_choice":       "اختيار غير صالح",
		"invalid_color":        "لون غير صالح",
		"invalid":              "قيمة غير صالحة",
		"bad_json":             "طلب غير صالح",
		"saved":                "تم الحفظ بنجاح",
		"deleted":              "تم الحذف بنجاح",
		"created":              "تمت الإضافة بنجاح",
		"not_found":            "العنصر غير موجود",
		"save_failed":          "فشل الحفظ",
		"delete_failed":        "فشل الحذف",
		"load_failed":          "فشل تحميل البيانات",
		"client_has_requests":  "لا يمكن حذف العميل لوجود طلبات مرتبطة به",
		"stale_write":          "تم تعديل الطلب من مستخدم آخر، يرجى التحديث",
		"confirm_required":     "يرجى تأكيد العملية",
		"unauthorized":         "يرجى تسجيل الدخول",
		"forbidden":            "ليس لديك صلاحية",
		"invalid_pin":          "رمز الدخول غير صحيح",
		"inactive_employee":    "الموظف غير نشط",
		"setup_done":           "تم الإعداد مسبقاً",
		"template_not_found":   "القالب غير موجود",
		"report_failed":        "فشل إنشاء التقرير",
		"export_failed":        "فشل التصدير",
		"upload_failed":        "فشل رفع الملف",
		"ai_network_error":     "تعذر الاتصال بخدمة الذكاء الاصطناعي",
		"ai_invalid_key":       "مفتاح خدمة الذكاء الاصطناعي غير صالح",
		"ai_client_error":      "طلب غير مقبول من خدمة الذكاء الاصطناعي",
		"ai_server_error":      "خدمة الذكاء الاصطناعي غير متاحة حالياً",
		"ai_unknown_error":     "حدث خطأ غير متوقع في خدمة الذكاء الاصطناعي",
		"ai_no_plate":          "لم يتم التعرف على اللوحة",
		"status_new":           "جديد",
		"status_in_progress":   "قيد الفحص",
		"status_complete":      "مكتمل",
		"report_title":         "تقرير الفحص",
		"general_notes":        "ملاحظات عامة",
		"notes":                "ملاحظات",
		"client":               "العميل",
		"vehicle":              "المركبة",
		"plate":                "اللوحة",
		"chassis":              "رقم الهيكل",
		"price":                "السعر",
		"date":                 "التاريخ",
		"request_number":       "رقم الطلب",
		"app_name":             "ورشة الفحص",
		"sign_in":              "تسجيل الدخول",
		"sign_out":             "تسجيل الخروج",
		"employee":             "الموظف",
		"pin":                  "رمز الدخول",
		"setup_title":          "إنشاء حساب المدير العام",
		"page_dashboard":       "لوحة التحكم",
		"page_requests":        "الطلبات",
		"page_clients":         "العملاء",
		"page_brokers":         "الوسطاء",
		"page_expenses":        "المصروفات",
		"page_employees":       "الموظفون",
		"page_settings":        "الإعدادات",
		"page_profile":         "الملف الشخصي",
	},
	"en": {
		"required":             "Required",
		"must_be_positive":     "Must be greater than zero",
		"must_not_be_negative": "Must not be negative",
		"invalid_choice":       "Invalid choice",
		"invalid_color":        "Invalid color",
		"invalid":              "Invalid value",
		"bad_json":             "Invalid request",
		"saved":                "Saved successfully",
		"deleted":              "Deleted successfully",
		"created":              "Created successfully",
		"not_found":            "Not found",
		"save_failed":          "Save failed",
		"delete_failed":        "Delete failed",
		"load_failed":          "Failed to load data",
		"client_has_requests":  "Cannot delete a client that has requests",
		"stale_write":          "The request was changed by someone else, please refresh",
		"confirm_required":     "Please confirm this action",
		"unauthorized":         "Please sign in",
		"forbidden":            "You do not have permission",
		"invalid_pin":          "Invalid PIN",
		"inactive_employee":    "Employee is inactive",
		"setup_done":           "Setup already completed",
		"template_not_found":   "Template not found",
		"report_failed":        "Report generation failed",
		"export_failed":        "Export failed",
		"upload_failed":        "Upload failed",
		"ai_network_error":     "Could not reach the AI service",
		"ai_invalid_key":       "The AI service key is invalid",
		"ai_client_error":      "The AI service rejected the request",
		"ai_server_error":      "The AI service is unavailable",
		"ai_unknown_error":     "Unexpected AI service error",
		"ai_no_plate":          "No plate recognised",
		"status_new":           "New",
		"status_in_progress":   "In progress",
		"status_complete":      "Complete",
		"report_title":         "Inspection report",
		"general_notes":        "General notes",
		"notes":                "Notes",
		"client":               "Client",
		"vehicle":              "Vehicle",
		"plate":                "Plate",
		"chassis":              "Chassis number",
		"price":                "Price",
		"date":                 "Date",
		"request_number":       "Request no.",
		"app_name":             "Inspection workshop",
		"sign_in":              "Sign in",
		"sign_out":             "Sign out",
		"employee":             "Employee",
		"pin":                  "PIN",
		"setup_title":          "Create the general manager",
		"page_dashboard":       "Dashboard",
		"page_requests":        "Requests",
		"page_clients":         "Clients",
		"page_brokers":         "Brokers",
		"page_expenses":        "Expenses",
		"page_employees":       "Employees",
		"page_settings":        "Settings",
		"page_profile":         "Profile",
	},
}

// T translates code into lang. Unknown languages use the default catalog and
// unknown codes are returned unchanged.
func T(lang, code string) string {
	cat, ok := catalogs[lang]
	if !ok {
		cat = catalogs[DefaultLang]
	}
	if msg, ok := cat[code]; ok {
		return msg
	}
	if msg, ok := catalogs[DefaultLang][code]; ok {
		return msg
	}
	return code
}

// Normalize returns lang when a catalog exists for it, DefaultLang otherwise.
func Normalize(lang string) string {
	if _, ok := catalogs[lang]; ok {
		return lang
	}
	return DefaultLang
}

// DetectLanguage picks the first supported language of an Accept-Language header.
func DetectLanguage(acceptLanguage string) string {
	for _, part := range strings.Split(acceptLanguage, ",") {
		tag := strings.ToLower(strings.TrimSpace(part))
		if i := strings.IndexAny(tag, "-;_"); i >= 0 {
			tag = tag[:i]
		}
		if _, ok := catalogs[tag]; ok {
			return tag
		}
	}
	return DefaultLang
}

type langKey struct{}

// WithLang stores the request language in ctx.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, langKey{}, Normalize(lang))
}

// FromContext returns the language stored by WithLang, or DefaultLang.
func FromContext(ctx context.Context) string {
	if l, ok := ctx.Value(langKey{}).(string); ok {
		return l
	}
	return DefaultLang
}
