package views

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CurrencySuffix is appended to every rendered price.
const CurrencySuffix = "ل.س"

var months = [12]string{
	"كانون الثاني",
	"شباط",
	"آذار",
	"نيسان",
	"أيار",
	"حزيران",
	"تموز",
	"آب",
	"أيلول",
	"تشرين الأول",
	"تشرين الثاني",
	"كانون الأول",
}

// MonthName returns the Levantine Arabic name of a month (1-12).
func MonthName(month time.Month) string {
	if month < time.January || month > time.December {
		return ""
	}
	return months[month-1]
}

// FormatDate renders "<month> <year>، <day>".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s %d، %d", MonthName(t.Month()), t.Year(), t.Day())
}

// FormatPrice renders an amount with the currency suffix.
func FormatPrice(amount decimal.Decimal) string {
	return amount.String() + " " + CurrencySuffix
}

// Tone selects the badge colour family.
type Tone string

const (
	ToneBase    Tone = "base"
	ToneWarning Tone = "warning"
	ToneSuccess Tone = "success"
	ToneDone    Tone = "done"
	ToneDanger  Tone = "danger"
)

// Badge is a short status label.
type Badge struct {
	Title string
	Tone  Tone
}

// OrderBadge maps a backend order status onto its badge.
func OrderBadge(status string) Badge {
	switch status {
	case "Pending":
		return Badge{Title: "معلّق", Tone: ToneWarning}
	case "Accepted":
		return Badge{Title: "تم القبول", Tone: ToneSuccess}
	case "Delivered":
		return Badge{Title: "تم الاستلام", Tone: ToneDone}
	default:
		return Badge{Title: "مرفوض", Tone: ToneDanger}
	}
}

// TotalBadge renders an order total.
func TotalBadge(amount decimal.Decimal) Badge {
	return Badge{Title: FormatPrice(amount), Tone: ToneBase}
}

// PlaceholderImage replaces missing medicine pictures.
const PlaceholderImage = "assets/medicines/not-found.png"

// ImageOrPlaceholder returns url, or the placeholder when it is empty.
func ImageOrPlaceholder(url string) string {
	if url == "" {
		return PlaceholderImage
	}
	return url
}
