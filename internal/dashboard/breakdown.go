package dashboard

import (
	"html/template"
	"net/url"
	"strings"

	"github.com/odyssey-erp/management-dashboard/internal/summary"
)

// CustomerLinkPrefix is the route of a customer record.
const CustomerLinkPrefix = "/app/customer/"

// CustomerRow is one rendered top customer.
type CustomerRow struct {
	Name  string
	Href  string
	Value string
}

// CashRow is one rendered cash or bank account.
type CashRow struct {
	Name  string
	Badge string
	Value string
}

type customerList struct {
	Rows  []CustomerRow
	Empty string
}

type cashList struct {
	Rows  []CashRow
	Empty string
}

// BreakdownFragments are the rendered breakdown containers.
type BreakdownFragments struct {
	TopCustomers template.HTML
	CashBank     template.HTML
}

// CustomerHref links to a customer record, escaping the name as a single path
// component.
func CustomerHref(customer string) string {
	return CustomerLinkPrefix + strings.ReplaceAll(url.QueryEscape(customer), "+", "%20")
}

// RenderBreakdowns renders both lists independently, keeping server order.
func (r *Renderer) RenderBreakdowns(payload *summary.AnnualSummary) BreakdownFragments {
	var b summary.Breakdowns
	if payload != nil {
		b = payload.Breakdowns
	}

	customers := customerList{Empty: r.t.T("No customers found for the selected period.")}
	for _, c := range b.TopCustomers {
		customers.Rows = append(customers.Rows, CustomerRow{
			Name:  c.Customer,
			Href:  CustomerHref(c.Customer),
			Value: r.money.Money(c.Total),
		})
	}

	cash := cashList{Empty: r.t.T("No Cash/Bank accounts found.")}
	for _, a := range b.CashBank {
		name := a.AccountName
		if name == "" {
			name = a.Account
		}
		cash.Rows = append(cash.Rows, CashRow{
			Name:  name,
			Badge: a.AccountType,
			Value: r.money.Money(a.Balance),
		})
	}

	return BreakdownFragments{
		TopCustomers: r.execute("customers", customers),
		CashBank:     r.execute("cash", cash),
	}
}
