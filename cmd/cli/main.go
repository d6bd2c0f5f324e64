package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nazeru/materials-marketplace-go/internal/apiclient"
	"github.com/nazeru/materials-marketplace-go/internal/bench"
	"github.com/nazeru/materials-marketplace-go/internal/location"
	"github.com/nazeru/materials-marketplace-go/internal/order/domain"
	ordertx "github.com/nazeru/materials-marketplace-go/internal/order/tx"
)

type scenario struct {
	Name        string
	Description string
}

var scenarios = []scenario{
	{"place", "Supplier lists a material, vendor orders 3 units"},
	{"cancel", "Place an order, then cancel it and check the stock comes back"},
	{"list", "List the demo vendor's orders"},
	{"bench", "Run 50 concurrent one-unit orders against 20 units of stock"},
}

var (
	demoVendor   = domain.Caller{ID: "cli-vendor", Name: "CLI Vendor", Role: domain.RoleVendor, Address: "Shop 4, Andheri East, Mumbai"}
	demoSupplier = domain.Caller{ID: "cli-supplier", Name: "CLI Supplier", Role: domain.RoleSupplier}
	// Supplier yard in Thane, vendor shop in Andheri.
	supplierYard = domain.GeoPoint{Latitude: 19.2183, Longitude: 72.9781}
	vendorShop   = domain.GeoPoint{Latitude: 19.1136, Longitude: 72.8697}
)

type model struct {
	client   *apiclient.Client
	selected int
	status   string
	detail   string
	busy     bool
}

func initialModel(c *apiclient.Client) model {
	return model{client: c, status: "Ready"}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up":
			if m.selected > 0 {
				m.selected--
			}
		case "down":
			if m.selected < len(scenarios)-1 {
				m.selected++
			}
		case "enter":
			if m.busy {
				return m, nil
			}
			m.busy = true
			m.status = "Running..."
			m.detail = ""
			return m, runScenarioCmd(m.client, scenarios[m.selected].Name)
		}
	case scenarioResult:
		m.busy = false
		m.status = msg.status
		m.detail = msg.detail
	}
	return m, nil
}

func (m model) View() string {
	b := &strings.Builder{}
	fmt.Fprintln(b, "materials-marketplace-go CLI")
	fmt.Fprintf(b, "API: %s\n\n", m.client.BaseURL)
	fmt.Fprintln(b, "Scenarios:")
	for i, scn := range scenarios {
		marker := " "
		if i == m.selected {
			marker = ">"
		}
		fmt.Fprintf(b, " %s %-7s %s\n", marker, scn.Name, scn.Description)
	}
	fmt.Fprintln(b, "")
	fmt.Fprintf(b, "Status: %s\n", m.status)
	if m.detail != "" {
		fmt.Fprintln(b, m.detail)
	}
	fmt.Fprintln(b, "\nControls: up/down select scenario, enter to run, q to quit")
	return b.String()
}

type scenarioResult struct {
	status string
	detail string
}

func runScenarioCmd(c *apiclient.Client, name string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		res, err := runScenario(ctx, c, name)
		if err != nil {
			return scenarioResult{status: fmt.Sprintf("%s failed: %v", name, err)}
		}
		return res
	}
}

func runScenario(ctx context.Context, c *apiclient.Client, name string) (scenarioResult, error) {
	switch name {
	case "place":
		m, o, err := placeDemoOrder(ctx, c)
		if err != nil {
			return scenarioResult{}, err
		}
		after, err := c.GetMaterial(ctx, demoSupplier, m.ID)
		if err != nil {
			return scenarioResult{}, err
		}
		d := location.Between(supplierYard, vendorShop)
		return scenarioResult{
			status: fmt.Sprintf("Order %s %s, total %s", o.ID, o.Status, o.TotalAmount),
			detail: fmt.Sprintf("Stock %d -> %d. Delivery %s away: %s, fee %d",
				m.Quantity, after.Quantity, location.FormatDistance(d), location.EstimateDeliveryTime(d), location.DeliveryFee(d)),
		}, nil
	case "cancel":
		m, o, err := placeDemoOrder(ctx, c)
		if err != nil {
			return scenarioResult{}, err
		}
		cancelled, err := c.CancelOrder(ctx, demoVendor, o.ID)
		if err != nil {
			return scenarioResult{}, err
		}
		after, err := c.GetMaterial(ctx, demoSupplier, m.ID)
		if err != nil {
			return scenarioResult{}, err
		}
		return scenarioResult{
			status: fmt.Sprintf("Order %s %s", cancelled.ID, cancelled.Status),
			detail: fmt.Sprintf("Stock %d -> %d", m.Quantity, after.Quantity),
		}, nil
	case "list":
		page, err := c.MyOrders(ctx, demoVendor, 1, 10)
		if err != nil {
			return scenarioResult{}, err
		}
		b := &strings.Builder{}
		for _, o := range page.Orders {
			fmt.Fprintf(b, "  %s  %-10s %s\n", o.ID, o.Status, o.TotalAmount)
		}
		return scenarioResult{status: fmt.Sprintf("%d orders (page %d of %d)", page.Total, page.Page, page.Pages), detail: b.String()}, nil
	case "bench":
		res, err := bench.Run(ctx, bench.Config{Client: c, Stock: 20, Total: 50, Concurrency: 10})
		if err != nil {
			return scenarioResult{}, err
		}
		return scenarioResult{status: "Benchmark finished", detail: res.Summary()}, nil
	}
	return scenarioResult{}, fmt.Errorf("unknown scenario %q", name)
}

// placeDemoOrder lists a fresh material and orders 3 units of it.
func placeDemoOrder(ctx context.Context, c *apiclient.Client) (domain.Material, domain.Order, error) {
	m, err := c.CreateMaterial(ctx, demoSupplier, apiclient.NewMaterial{
		Name: "OPC 53 cement", Price: 100, Quantity: 10, Unit: "bag", Category: "cement",
		Location: &supplierYard, DeliveryRadiusKm: 30,
	})
	if err != nil {
		return domain.Material{}, domain.Order{}, err
	}
	o, err := c.PlaceOrder(ctx, demoVendor, "", []ordertx.CheckoutItem{{MaterialID: m.ID, Quantity: 3}})
	return m, o, err
}

func main() {
	runCmd := flag.String("run", "", "run scenario: place|cancel|list|bench")
	flag.Parse()

	client := apiclient.New(getenv("ORDER_BASE_URL", "http://localhost:8080"), []byte(getenv("JWT_SECRET", "")), 10*time.Second)

	if *runCmd != "" {
		res := runScenarioCmd(client, *runCmd)().(scenarioResult)
		fmt.Println(res.status)
		if res.detail != "" {
			fmt.Println(res.detail)
		}
		return
	}

	p := tea.NewProgram(initialModel(client))
	if _, err := p.Run(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}
