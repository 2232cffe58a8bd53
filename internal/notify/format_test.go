package notify

import (
	"strings"
	"testing"
)

func TestPriorityFor(t *testing.T) {
	if got := PriorityFor(TypeMeetingRequest); got != "high" {
		t.Errorf("meeting_request priority = %q, want high", got)
	}
	for _, typ := range []string{TypeChatSupport, TypeTranslation, TypeInsurance, TypeVoluntaryReturn, TypeServiceRequest, TypeGeneralInquiry} {
		if got := PriorityFor(typ); got != "normal" {
			t.Errorf("%s priority = %q, want normal", typ, got)
		}
	}
}

func TestFormatMessageBasics(t *testing.T) {
	evt := Event{
		Type:      TypeChatSupport,
		SessionID: "sess-42",
		Body:      "customer needs help",
		Client:    ClientInfo{Name: "Aylin", Email: "aylin@example.com"},
	}
	text := FormatMessage(evt, "ar")

	for _, want := range []string{
		"<b>طلب دعم جديد</b>",
		"Aylin",
		"aylin@example.com",
		"customer needs help",
		"<code>sess-42</code>",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("message missing %q:\n%s", want, text)
		}
	}
	// Phone is unset and falls back to the placeholder.
	if !strings.Contains(text, "غير محدد") {
		t.Error("missing fields should render the not-specified placeholder")
	}
}

func TestFormatMessageEnglish(t *testing.T) {
	evt := Event{Type: TypeTranslation, RequestID: "req-7", Client: ClientInfo{Name: "Omar"}}
	text := FormatMessage(evt, "en")

	for _, want := range []string{
		"New Translation Request",
		"Client Information:",
		"Not specified",
		"Request ID:",
		"<code>req-7</code>",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("message missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "معلومات العميل") {
		t.Error("english message should not contain arabic labels")
	}
}

func TestFormatMessageMeetingRequestHighPriority(t *testing.T) {
	text := FormatMessage(Event{Type: TypeMeetingRequest}, "ar")
	if !strings.Contains(text, "🔴") {
		t.Error("meeting request should carry the high priority marker")
	}
	if !strings.Contains(text, "عالية") {
		t.Error("meeting request should say high priority")
	}
}

func TestFormatMessageVoluntaryReturnDetails(t *testing.T) {
	evt := Event{
		Type: TypeVoluntaryReturn,
		Details: Details{
			KimlikNo:     "99123456789",
			SinirKapisi:  "Cilvegözü",
			RefakatCount: 2,
		},
	}
	text := FormatMessage(evt, "ar")

	for _, want := range []string{
		"تفاصيل العودة الطوعية",
		"99123456789",
		"Cilvegözü",
		"عدد المرافقين:",
		" 2",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("message missing %q:\n%s", want, text)
		}
	}
	// Voluntary return is normal priority.
	if !strings.Contains(text, "🟡") {
		t.Error("voluntary return should be normal priority")
	}
}

func TestFormatMessageHealthInsuranceDetails(t *testing.T) {
	evt := Event{
		Type: TypeHealthInsurance,
		Details: Details{
			AgeGroup:         "18-30",
			CalculatedAge:    25,
			CompanyName:      "Ankara Sigorta",
			DurationMonths:   12,
			CalculatedPrice:  1500.50,
			HasPassportImage: true,
		},
	}
	text := FormatMessage(evt, "ar")

	for _, want := range []string{
		"تفاصيل التأمين الصحي",
		"18-30",
		"25 سنة",
		"Ankara Sigorta",
		"12 شهر",
		"1500.50",
		"صورة جواز السفر:",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("message missing %q:\n%s", want, text)
		}
	}
}

func TestFormatMessageUrgentChatSupport(t *testing.T) {
	evt := Event{
		Type:    TypeChatSupport,
		Details: Details{MessageCount: 4, Urgent: true},
	}
	text := FormatMessage(evt, "ar")

	if !strings.Contains(text, "⚠️") {
		t.Error("urgent chat support should carry the warning marker")
	}
	if !strings.Contains(text, " 4") {
		t.Error("message count should be rendered")
	}
}

func TestFormatMessageServiceSubtype(t *testing.T) {
	evt := Event{
		Type:    TypeServiceRequest,
		Details: Details{ServiceType: "legal_services", HasFile: true, FileName: "poa.pdf"},
	}
	text := FormatMessage(evt, "ar")

	if !strings.Contains(text, "خدمات قانونية") {
		t.Error("service sub-type should be translated")
	}
	if !strings.Contains(text, "poa.pdf") {
		t.Error("attached file name should be rendered")
	}
}

func TestTypeTitleFallback(t *testing.T) {
	if got := typeTitle("unknown_type", "en"); got != "General Inquiry" {
		t.Errorf("unknown type title = %q, want General Inquiry", got)
	}
	if got := typeEmoji("unknown_type"); got != "❓" {
		t.Errorf("unknown type emoji = %q", got)
	}
}
