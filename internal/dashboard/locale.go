package dashboard

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"golang.org/x/text/number"
)

// DefaultDateLayout renders month keys day-first.
const DefaultDateLayout = "02-01-2006"

var indonesian = map[string]string{
	"Management Dashboard":      "Dasbor Manajemen",
	"Year":                      "Tahun",
	"Company":                   "Perusahaan",
	"Refresh":                   "Muat Ulang",
	"Apply":                     "Terapkan",
	"Loading annual summary…":   "Memuat ringkasan tahunan…",
	"Annual Summary":            "Ringkasan Tahunan",
	"Period":                    "Periode",
	"Sales":                     "Penjualan",
	"Purchases":                 "Pembelian",
	"Net Profit (proxy)":        "Laba Bersih (perkiraan)",
	"Receivables (Outstanding)": "Piutang (Belum Dibayar)",
	"Payables (Outstanding)":    "Utang (Belum Dibayar)",
	"Income":                    "Pendapatan",
	"Expense":                   "Beban",
	"Working Capital (AR - AP)": "Modal Kerja (Piutang - Utang)",
	"Top Customers":             "Pelanggan Teratas",
	"Export":                    "Ekspor",

	"Monthly Sales vs Purchases":           "Penjualan vs Pembelian Bulanan",
	"Net Profit (proxy) & Working Capital": "Laba Bersih (perkiraan) & Modal Kerja",
	"Cash & Bank (as of period end)":       "Kas & Bank (per akhir periode)",

	"Could not load dashboard data. Please contact your system administrator.":          "Tidak dapat memuat data dasbor. Silakan hubungi administrator sistem Anda.",
	"No data for the selected period.":                                                  "Tidak ada data untuk periode yang dipilih.",
	"Chart library not available. Data was loaded, but chart rendering is unavailable.": "Pustaka grafik tidak tersedia. Data sudah dimuat, tetapi grafik tidak dapat ditampilkan.",
	"No customers found for the selected period.":                                       "Tidak ada pelanggan untuk periode yang dipilih.",
	"No Cash/Bank accounts found.":                                                      "Tidak ada akun Kas/Bank.",
}

// CatalogTranslator translates through an x/text message catalog. Unknown
// strings pass through unchanged.
type CatalogTranslator struct {
	printer *message.Printer
}

// NewTranslator builds the English and Indonesian catalog for tag.
func NewTranslator(tag language.Tag) *CatalogTranslator {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, msg := range indonesian {
		_ = b.SetString(language.Indonesian, key, msg)
	}
	return &CatalogTranslator{printer: message.NewPrinter(tag, message.Catalog(b))}
}

// T implements Translator.
func (t *CatalogTranslator) T(s string) string {
	if strings.ContainsRune(s, '%') {
		return s
	}
	return t.printer.Sprintf(s)
}

// CurrencyFormat prints amounts with a currency symbol and the standard
// number of decimals for that currency.
type CurrencyFormat struct {
	unit    currency.Unit
	printer *message.Printer
	scale   int
}

// NewCurrencyFormat returns a formatter for unit in the conventions of tag.
func NewCurrencyFormat(unit currency.Unit, tag language.Tag) *CurrencyFormat {
	scale, _ := currency.Standard.Rounding(unit)
	return &CurrencyFormat{unit: unit, printer: message.NewPrinter(tag), scale: scale}
}

// Format implements CurrencyFormatter.
func (f *CurrencyFormat) Format(amount float64) (string, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "", fmt.Errorf("dashboard: cannot format %v as currency", amount)
	}
	symbol := f.printer.Sprint(currency.Symbol(f.unit))
	value := f.printer.Sprint(number.Decimal(amount, number.MinFractionDigits(f.scale), number.MaxFractionDigits(f.scale)))
	return symbol + " " + value, nil
}

// LayoutDateFormatter renders YYYY-MM-DD or YYYY-MM keys with Layout.
type LayoutDateFormatter struct {
	Layout string
}

// FormatDate implements DateFormatter. Keys that do not parse are returned as is.
func (f LayoutDateFormatter) FormatDate(key string) string {
	layout := f.Layout
	if layout == "" {
		layout = DefaultDateLayout
	}
	for _, candidate := range []string{"2006-01-02", "2006-01"} {
		if t, err := time.Parse(candidate, key); err == nil {
			return t.Format(layout)
		}
	}
	return key
}

// MoneyFormatter formats amounts through a CurrencyFormatter and falls back to
// plain localized numbers whenever the formatter is missing or misbehaves.
type MoneyFormatter struct {
	currency CurrencyFormatter
	fallback *message.Printer
}

// NewMoneyFormatter wires cf with a fallback printer for tag. cf may be nil.
func NewMoneyFormatter(cf CurrencyFormatter, tag language.Tag) MoneyFormatter {
	return MoneyFormatter{currency: cf, fallback: message.NewPrinter(tag)}
}

// Money never fails.
func (m MoneyFormatter) Money(v float64) string {
	if m.currency != nil {
		if s, ok := m.tryCurrency(v); ok {
			return s
		}
	}
	printer := m.fallback
	if printer == nil {
		printer = message.NewPrinter(language.English)
	}
	return printer.Sprint(number.Decimal(v, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

func (m MoneyFormatter) tryCurrency(v float64) (out string, ok bool) {
	defer func() {
		if recover() != nil {
			out, ok = "", false
		}
	}()
	s, err := m.currency.Format(v)
	if err != nil {
		return "", false
	}
	return s, true
}

type identityTranslator struct{}

func (identityTranslator) T(s string) string { return s }
