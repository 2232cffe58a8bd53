package notify

import (
	"fmt"
	"strings"
)

// Supported event types.
const (
	TypeChatSupport               = "chat_support"
	TypeTranslation               = "translation"
	TypeInsurance                 = "insurance"
	TypeHealthInsurance           = "health_insurance"
	TypeMeetingRequest            = "meeting_request"
	TypeVoluntaryReturn           = "voluntary_return"
	TypeHealthInsuranceActivation = "health_insurance_activation"
	TypeServiceRequest            = "service_request"
	TypeGeneralInquiry            = "general_inquiry"
)

// PriorityFor derives the priority marker from the event type. Meeting
// requests are the one elevated type; everything else is normal.
func PriorityFor(eventType string) string {
	if eventType == TypeMeetingRequest {
		return "high"
	}
	return "normal"
}

// label returns the ar or en variant for the configured language.
func label(lang, ar, en string) string {
	if lang == "en" {
		return en
	}
	return ar
}

// typeTitle is the fixed header line per event type.
func typeTitle(eventType, lang string) string {
	switch eventType {
	case TypeChatSupport:
		return label(lang, "طلب دعم جديد", "New Support Request")
	case TypeTranslation:
		return label(lang, "طلب ترجمة جديد", "New Translation Request")
	case TypeInsurance:
		return label(lang, "طلب تأمين جديد", "New Insurance Request")
	case TypeHealthInsurance:
		return label(lang, "طلب تأمين صحي للأجانب", "Foreign Health Insurance Request")
	case TypeMeetingRequest:
		return label(lang, "🔔 طلب موعد/لقاء رسمي", "🔔 Meeting/Appointment Request")
	case TypeVoluntaryReturn:
		return label(lang, "طلب عودة طوعية", "Voluntary Return Request")
	case TypeHealthInsuranceActivation:
		return label(lang, "طلب تفعيل تأمين صحي", "Health Insurance Activation")
	case TypeServiceRequest:
		return label(lang, "طلب خدمة جديد", "New Service Request")
	default:
		return label(lang, "استفسار عام", "General Inquiry")
	}
}

// typeEmoji is the leading emoji per event type.
func typeEmoji(eventType string) string {
	switch eventType {
	case TypeChatSupport:
		return "💬"
	case TypeTranslation:
		return "🌐"
	case TypeInsurance:
		return "🛡️"
	case TypeHealthInsurance, TypeHealthInsuranceActivation:
		return "🏥"
	case TypeVoluntaryReturn:
		return "🔄"
	case TypeServiceRequest:
		return "📋"
	case TypeMeetingRequest:
		return "🔔"
	default:
		return "❓"
	}
}

// typeText is the short service-type name used in the info block.
func typeText(eventType, lang string) string {
	switch eventType {
	case TypeChatSupport:
		return label(lang, "دعم فني", "Chat Support")
	case TypeTranslation:
		return label(lang, "ترجمة", "Translation")
	case TypeInsurance:
		return label(lang, "تأمين", "Insurance")
	case TypeHealthInsurance:
		return label(lang, "تأمين صحي للأجانب", "Foreign Health Insurance")
	case TypeMeetingRequest:
		return label(lang, "موعد/لقاء رسمي", "Meeting/Appointment")
	case TypeVoluntaryReturn:
		return label(lang, "عودة طوعية", "Voluntary Return")
	case TypeHealthInsuranceActivation:
		return label(lang, "تفعيل تأمين صحي", "Health Insurance Activation")
	case TypeServiceRequest:
		return label(lang, "طلب خدمة", "Service Request")
	default:
		return label(lang, "استفسار عام", "General Inquiry")
	}
}

// serviceTypeText maps a service_request sub-type to display text.
func serviceTypeText(serviceType, lang string) string {
	switch serviceType {
	case "translation":
		return label(lang, "ترجمة", "Translation")
	case "insurance":
		return label(lang, "تأمين", "Insurance")
	case "consultation":
		return label(lang, "استشارات", "Consultation")
	case "government_services":
		return label(lang, "خدمات حكومية", "Government Services")
	case "legal_services":
		return label(lang, "خدمات قانونية", "Legal Services")
	case "business_services":
		return label(lang, "خدمات تجارية", "Business Services")
	case "education_services":
		return label(lang, "خدمات تعليمية", "Education Services")
	case "health_services":
		return label(lang, "خدمات صحية", "Health Services")
	case "travel_services":
		return label(lang, "خدمات سفر", "Travel Services")
	case "general_inquiry":
		return label(lang, "استفسار عام", "General Inquiry")
	case "other":
		return label(lang, "خدمات أخرى", "Other Services")
	default:
		return serviceType
	}
}

// priorityEmoji marks the priority in the info block.
func priorityEmoji(priority string) string {
	switch priority {
	case "high":
		return "🔴"
	case "low":
		return "🟢"
	default:
		return "🟡"
	}
}

func priorityText(priority, lang string) string {
	switch priority {
	case "high":
		return label(lang, "عالية", "High")
	case "low":
		return label(lang, "منخفضة", "Low")
	default:
		return label(lang, "عادية", "Normal")
	}
}

// FormatMessage renders one event as an HTML message: header, client
// block, body, info block, type-specific details, and identifiers.
func FormatMessage(evt Event, lang string) string {
	priority := PriorityFor(evt.Type)
	notSpecified := label(lang, "غير محدد", "Not specified")
	value := func(s string) string {
		if s == "" {
			return notSpecified
		}
		return s
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s</b>\n\n", typeEmoji(evt.Type), typeTitle(evt.Type, lang))

	fmt.Fprintf(&b, "👤 <b>%s</b>\n", label(lang, "معلومات العميل:", "Client Information:"))
	fmt.Fprintf(&b, "• %s %s\n", label(lang, "الاسم:", "Name:"), value(evt.Client.Name))
	fmt.Fprintf(&b, "• %s %s\n", label(lang, "البريد الإلكتروني:", "Email:"), value(evt.Client.Email))
	fmt.Fprintf(&b, "• %s %s\n\n", label(lang, "رقم الهاتف:", "Phone:"), value(evt.Client.Phone))

	fmt.Fprintf(&b, "📝 <b>%s</b>\n%s\n\n", label(lang, "تفاصيل الطلب:", "Request Details:"), evt.Body)

	fmt.Fprintf(&b, "📊 <b>%s</b>\n", label(lang, "معلومات إضافية:", "Additional Info:"))
	fmt.Fprintf(&b, "• %s %s\n", label(lang, "نوع الخدمة:", "Service Type:"), typeText(evt.Type, lang))
	fmt.Fprintf(&b, "• %s %s %s\n", label(lang, "الأولوية:", "Priority:"), priorityEmoji(priority), priorityText(priority, lang))
	fmt.Fprintf(&b, "• %s %s\n", label(lang, "الحالة:", "Status:"), label(lang, "معلق", "Pending"))

	appendDetails(&b, evt, lang)

	if evt.SessionID != "" {
		fmt.Fprintf(&b, "\n💬 <b>%s</b> <code>%s</code>", label(lang, "معرف الجلسة:", "Session ID:"), evt.SessionID)
	}
	if evt.RequestID != "" {
		fmt.Fprintf(&b, "\n🆔 <b>%s</b> <code>%s</code>", label(lang, "معرف الطلب:", "Request ID:"), evt.RequestID)
	}

	return b.String()
}

// appendDetails writes the zero-or-more extra lines each event type adds.
func appendDetails(b *strings.Builder, evt Event, lang string) {
	d := evt.Details
	line := func(ar, en, val string) {
		fmt.Fprintf(b, "\n• %s %s", label(lang, ar, en), val)
	}
	fileLine := func() {
		if d.HasFile {
			name := d.FileName
			if name == "" {
				name = label(lang, "ملف", "File")
			}
			line("ملف مرفق:", "File attached:", name)
		}
	}

	switch evt.Type {
	case TypeTranslation:
		fmt.Fprintf(b, "\n\n🌐 <b>%s</b>", label(lang, "تفاصيل الترجمة:", "Translation Details:"))
		fileLine()
		if d.ServiceType != "" {
			line("نوع الترجمة:", "Translation type:", d.ServiceType)
		}

	case TypeInsurance:
		fmt.Fprintf(b, "\n\n🛡️ <b>%s</b>", label(lang, "تفاصيل التأمين:", "Insurance Details:"))
		fileLine()
		if d.ServiceType != "" {
			line("نوع التأمين:", "Insurance type:", d.ServiceType)
		}

	case TypeServiceRequest:
		fmt.Fprintf(b, "\n\n📋 <b>%s</b>", label(lang, "تفاصيل الخدمة:", "Service Details:"))
		if d.ServiceType != "" {
			line("نوع الخدمة:", "Service type:", serviceTypeText(d.ServiceType, lang))
		}
		fileLine()

	case TypeHealthInsurance:
		fmt.Fprintf(b, "\n\n🏥 <b>%s</b>", label(lang, "تفاصيل التأمين الصحي:", "Health Insurance Details:"))
		if d.AgeGroup != "" {
			line("الفئة العمرية:", "Age Group:", d.AgeGroup)
		}
		if d.CalculatedAge > 0 {
			line("العمر المحسوب:", "Calculated Age:",
				fmt.Sprintf("%d %s", d.CalculatedAge, label(lang, "سنة", "years")))
		}
		if d.BirthDate != "" {
			line("تاريخ الميلاد:", "Birth Date:", d.BirthDate)
		}
		if d.CompanyName != "" {
			line("الشركة المطلوبة:", "Requested Company:", d.CompanyName)
		}
		if d.DurationMonths > 0 {
			line("المدة المطلوبة:", "Duration:",
				fmt.Sprintf("%d %s", d.DurationMonths, label(lang, "شهر", "months")))
		}
		if d.CalculatedPrice > 0 {
			line("السعر المحسوب:", "Calculated Price:",
				fmt.Sprintf("%.2f %s", d.CalculatedPrice, label(lang, "ليرة تركية", "TL")))
		}
		if d.HasPassportImage {
			line("صورة جواز السفر:", "Passport Image:", label(lang, "مرفقة", "Attached"))
		}

	case TypeVoluntaryReturn:
		fmt.Fprintf(b, "\n\n🔄 <b>%s</b>", label(lang, "تفاصيل العودة الطوعية:", "Voluntary Return Details:"))
		if d.KimlikNo != "" {
			line("رقم الهوية:", "Identity Number:", d.KimlikNo)
		}
		if d.SinirKapisi != "" {
			line("نقطة الحدود:", "Border Point:", d.SinirKapisi)
		}
		if d.RefakatCount > 0 {
			line("عدد المرافقين:", "Number of companions:", fmt.Sprintf("%d", d.RefakatCount))
		}
		if d.CustomDate != "" {
			line("تاريخ مخصص:", "Custom date:", d.CustomDate)
		}

	case TypeHealthInsuranceActivation:
		fmt.Fprintf(b, "\n\n🏥 <b>%s</b>", label(lang, "تفاصيل تفعيل التأمين الصحي:", "Health Insurance Activation Details:"))
		if d.KimlikNo != "" {
			line("رقم الهوية:", "Identity Number:", d.KimlikNo)
		}
		if d.Address != "" {
			line("العنوان:", "Address:", d.Address)
		}

	case TypeChatSupport:
		fmt.Fprintf(b, "\n\n💬 <b>%s</b>", label(lang, "تفاصيل الدعم الفني:", "Support Details:"))
		if d.MessageCount > 0 {
			line("عدد الرسائل:", "Message count:", fmt.Sprintf("%d", d.MessageCount))
		}
		if d.Language != "" {
			line("اللغة:", "Language:", label(d.Language, "العربية", "English"))
		}
		if d.Urgent {
			fmt.Fprintf(b, "\n• ⚠️ %s", label(lang,
				"هذه رسالة مستعجلة تتطلب رداً فورياً!",
				"This is an urgent message requiring immediate response!"))
		}
	}
}
