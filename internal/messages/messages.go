// Package messages holds the guest-facing texts of the RSVP conversation.
package messages

import (
	"fmt"
	"net/url"
)

const defaultGuestName = "אורח"

// Wedding carries the event details rendered into the invitation.
type Wedding struct {
	BrideName string
	GroomName string
	Date      string
	Location  string
	// CalendarStart and CalendarEnd use the compact UTC form, e.g. 20250604T163000Z.
	CalendarStart string
	CalendarEnd   string
}

// Templates renders every outbound text.
type Templates struct {
	wedding      Wedding
	resetKeyword string
	maxAttendees int
	calendarLink string
}

// NewTemplates creates the templates for one wedding.
func NewTemplates(w Wedding, resetKeyword string, maxAttendees int) *Templates {
	return &Templates{
		wedding:      w,
		resetKeyword: resetKeyword,
		maxAttendees: maxAttendees,
		calendarLink: CalendarLink(w),
	}
}

// CalendarLink builds a Google Calendar "add event" link, or "" when the
// calendar window is not configured.
func CalendarLink(w Wedding) string {
	if w.CalendarStart == "" || w.CalendarEnd == "" {
		return ""
	}
	q := url.Values{}
	q.Set("action", "TEMPLATE")
	q.Set("text", fmt.Sprintf("החתונה של %s ו%s", w.GroomName, w.BrideName))
	q.Set("dates", w.CalendarStart+"/"+w.CalendarEnd)
	q.Set("details", "הוזמנתם לחתונה שלנו! 🎉")
	q.Set("location", w.Location)
	return "https://www.google.com/calendar/render?" + q.Encode()
}

func (t *Templates) menu() string {
	return "1️⃣ מגיע/ה\n" +
		"2️⃣ לא מגיע/ה\n" +
		"3️⃣ אולי"
}

// Invite is the opening message, also re-sent on reset.
func (t *Templates) Invite(name string) string {
	if name == "" {
		name = defaultGuestName
	}
	return fmt.Sprintf("שלום, %s\n", name) +
		fmt.Sprintf("הוזמנתם לחתונה של %s ו%s שתיערך ב%s בתאריך %s 💍\n",
			t.wedding.GroomName, t.wedding.BrideName, t.wedding.Location, t.wedding.Date) +
		"בחר אחת מהאפשרויות והקלד מספר (לדוגמא: הקלד ושלח 1):\n" +
		t.menu()
}

func (t *Templates) AskCount() string {
	return fmt.Sprintf("כמה תגיעו? (רשום מספר בין 1 ל-%d)", t.maxAttendees)
}

func (t *Templates) Confirmed(attendees int) string {
	msg := fmt.Sprintf("✅ תודה על הרישום! נרשמו %d מגיעים.\nנשמח לראותכם 🎉", attendees)
	if t.calendarLink != "" {
		msg += "\n📅 ניתן להוסיף ליומן: " + t.calendarLink
	}
	return msg + fmt.Sprintf("\n\nלשינוי עתידי, שלח '%s' 🔄", t.resetKeyword)
}

func (t *Templates) Declined() string {
	return fmt.Sprintf("❌ חבל שלא תוכלו להגיע. ניתן לשנות את הבחירה על ידי שליחת '%s'", t.resetKeyword)
}

func (t *Templates) Maybe() string {
	return fmt.Sprintf("🤔 נרשמת כאולי. ניתן לעדכן את הבחירה על ידי שליחת '%s' 🔄", t.resetKeyword)
}

func (t *Templates) AlreadyResponded() string {
	return fmt.Sprintf("⛔ כבר שלחת תשובה. שלח '%s' כדי לשנות את בחירתך.", t.resetKeyword)
}

func (t *Templates) InvalidRange() string {
	return fmt.Sprintf("❌ מספר לא תקין. אנא שלח מספר בין 1 ל-%d.", t.maxAttendees)
}

func (t *Templates) NotANumber() string {
	return "❌ זה לא נראה כמו מספר תקני. אנא נסה שוב."
}

// Menu answers input that could not be understood.
func (t *Templates) Menu() string {
	return "❌ לא הצלחתי להבין את התשובה.\nבחר מספר:\n" + t.menu()
}

// SaveFailed tells the guest their answer was not stored.
func (t *Templates) SaveFailed() string {
	return fmt.Sprintf("⚠️ לא הצלחנו לשמור את תשובתך כעת. נסה שוב בעוד מספר דקות או שלח '%s'.", t.resetKeyword)
}
