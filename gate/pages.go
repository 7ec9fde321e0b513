package gate

// Page identifies a screen of the back office.
type Page string

const (
	PageDashboard Page = "dashboard"
	PageRequests  Page = "requests"
	PageClients   Page = "clients"
	PageBrokers   Page = "brokers"
	PageExpenses  Page = "expenses"
	PageEmployees Page = "employees"
	PageSettings  Page = "settings"
	PageProfile   Page = "profile"
)

// PageOrder is the menu order, used to pick a fallback page.
var PageOrder = []Page{
	PageDashboard, PageRequests, PageClients, PageBrokers,
	PageExpenses, PageEmployees, PageSettings, PageProfile,
}

// Pages maps each page to the capability required to open it. Pages
// without an entry are open to every authenticated employee.
var Pages = map[Page]Permission{
	PageDashboard: ViewDashboard,
	PageRequests:  ViewRequests,
	PageClients:   ManageClients,
	PageBrokers:   ManageBrokers,
	PageExpenses:  ManageExpenses,
	PageEmployees: ManageEmployees,
	PageSettings:  ManageSettings,
}

// Valid reports whether p is a known page.
func (p Page) Valid() bool {
	for _, k := range PageOrder {
		if k == p {
			return true
		}
	}
	return false
}

// CanOpen reports whether s may open page.
func CanOpen(s *Subject, page Page) bool {
	if s == nil {
		return false
	}
	perm, ok := Pages[page]
	if !ok {
		return page.Valid()
	}
	return Can(s, perm)
}

// FirstAllowedPage returns the first page of the menu s may open.
func FirstAllowedPage(s *Subject) (Page, bool) {
	for _, p := range PageOrder {
		if CanOpen(s, p) {
			return p, true
		}
	}
	return "", false
}
