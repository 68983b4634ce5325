package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Navneet1206/E-Commerce-sub000/internal/repositories"
)

const (
	EmailKindOrderPlaced      = "order_placed"
	EmailKindOrderPlacedAdmin = "order_placed_admin"
	EmailKindOrderUpdated     = "order_updated"

	notificationTimeout = 5 * time.Second
)

// EmailRequest is the message handed to the delivery sink.
type EmailRequest struct {
	EventID  string    `json:"eventId"`
	Kind     string    `json:"kind"`
	OrderID  string    `json:"orderId,omitempty"`
	To       string    `json:"to"`
	Subject  string    `json:"subject"`
	HTML     string    `json:"html"`
	Text     string    `json:"text"`
	QueuedAt time.Time `json:"queuedAt"`
}

// EmailPublisher hands email requests to a delivery sink and returns the sink's message id.
type EmailPublisher interface {
	PublishEmail(ctx context.Context, req EmailRequest) (string, error)
}

// Notifier sends best-effort order emails. Implementations log failures and never return them.
type Notifier interface {
	OrderPlaced(ctx context.Context, order Order)
	OrderUpdated(ctx context.Context, order Order)
}

type nopNotifier struct{}

func (nopNotifier) OrderPlaced(context.Context, Order)  {}
func (nopNotifier) OrderUpdated(context.Context, Order) {}

// EmailNotifierDeps bundles collaborators required to construct the email notifier.
type EmailNotifierDeps struct {
	Publisher   EmailPublisher
	Users       repositories.UserRepository
	AdminEmail  string
	StoreName   string
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

// EmailNotifier renders markdown templates to sanitised HTML and publishes them.
type EmailNotifier struct {
	publisher  EmailPublisher
	users      repositories.UserRepository
	adminEmail string
	storeName  string
	clock      func() time.Time
	newID      func() string
	logger     EventLogger
	markdown   goldmark.Markdown
	policy     *bluemonday.Policy
	printer    *message.Printer
}

var _ Notifier = (*EmailNotifier)(nil)

func NewEmailNotifier(deps EmailNotifierDeps) (*EmailNotifier, error) {
	if deps.Publisher == nil {
		return nil, errors.New("email notifier: publisher is required")
	}
	if deps.Users == nil {
		return nil, errors.New("email notifier: user repository is required")
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = func() string { return uuid.NewString() }
	}
	storeName := strings.TrimSpace(deps.StoreName)
	if storeName == "" {
		storeName = "Storefront"
	}
	return &EmailNotifier{
		publisher:  deps.Publisher,
		users:      deps.Users,
		adminEmail: strings.TrimSpace(deps.AdminEmail),
		storeName:  storeName,
		clock:      utcClock(deps.Clock),
		newID:      newID,
		logger:     loggerOrNop(deps.Logger),
		markdown:   goldmark.New(goldmark.WithExtensions(extension.Table)),
		policy:     bluemonday.UGCPolicy(),
		printer:    message.NewPrinter(language.English),
	}, nil
}

// OrderPlaced emails the customer and, when configured, the store admin.
func (n *EmailNotifier) OrderPlaced(ctx context.Context, order Order) {
	ctx, cancel := n.detach(ctx)
	defer cancel()
	user, ok := n.recipient(ctx, order)
	if ok {
		n.send(ctx, EmailKindOrderPlaced, order, user.Email,
			fmt.Sprintf("Your %s order %s is confirmed", n.storeName, order.ID),
			orderPlacedTemplate, n.view(order, user))
	}
	if n.adminEmail != "" {
		n.send(ctx, EmailKindOrderPlacedAdmin, order, n.adminEmail,
			fmt.Sprintf("New order %s", order.ID),
			orderPlacedAdminTemplate, n.view(order, user))
	}
}

// OrderUpdated emails the customer the new fulfilment status.
func (n *EmailNotifier) OrderUpdated(ctx context.Context, order Order) {
	ctx, cancel := n.detach(ctx)
	defer cancel()
	user, ok := n.recipient(ctx, order)
	if !ok {
		return
	}
	n.send(ctx, EmailKindOrderUpdated, order, user.Email,
		fmt.Sprintf("Order %s is now %s", order.ID, order.Status),
		orderUpdatedTemplate, n.view(order, user))
}

// detach keeps request values but survives the request being cancelled.
func (n *EmailNotifier) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), notificationTimeout)
}

func (n *EmailNotifier) recipient(ctx context.Context, order Order) (User, bool) {
	user, err := n.users.FindByID(ctx, order.UserID)
	if err != nil {
		n.logger(ctx, "notification.failed", map[string]any{
			"orderId": order.ID,
			"reason":  "recipient lookup",
			"error":   err.Error(),
		})
		return User{}, false
	}
	if strings.TrimSpace(user.Email) == "" {
		return User{}, false
	}
	return user, true
}

func (n *EmailNotifier) send(ctx context.Context, kind string, order Order, to, subject string, tmpl *template.Template, view emailView) {
	text, html, err := n.render(tmpl, view)
	if err != nil {
		n.logger(ctx, "notification.failed", map[string]any{"orderId": order.ID, "kind": kind, "error": err.Error()})
		return
	}
	req := EmailRequest{
		EventID:  n.newID(),
		Kind:     kind,
		OrderID:  order.ID,
		To:       to,
		Subject:  subject,
		HTML:     html,
		Text:     text,
		QueuedAt: n.clock(),
	}
	if _, err := n.publisher.PublishEmail(ctx, req); err != nil {
		n.logger(ctx, "notification.failed", map[string]any{
			"orderId": order.ID,
			"kind":    kind,
			"eventId": req.EventID,
			"error":   err.Error(),
		})
		return
	}
	n.logger(ctx, "notification.queued", map[string]any{"orderId": order.ID, "kind": kind, "eventId": req.EventID})
}

func (n *EmailNotifier) render(tmpl *template.Template, view emailView) (string, string, error) {
	var md bytes.Buffer
	if err := tmpl.Execute(&md, view); err != nil {
		return "", "", fmt.Errorf("render markdown: %w", err)
	}
	var html bytes.Buffer
	if err := n.markdown.Convert(md.Bytes(), &html); err != nil {
		return "", "", fmt.Errorf("convert markdown: %w", err)
	}
	return md.String(), n.policy.Sanitize(html.String()), nil
}

type emailLine struct {
	Name     string
	Size     string
	Quantity int
	Subtotal string
}

type emailView struct {
	Store         string
	CustomerName  string
	OrderID       string
	Status        string
	PaymentMethod string
	Paid          bool
	Total         string
	Delivery      string
	Lines         []emailLine
	City          string
}

func (n *EmailNotifier) view(order Order, user User) emailView {
	lines := make([]emailLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, emailLine{
			Name:     markdownEscape(item.Name),
			Size:     markdownEscape(item.Size),
			Quantity: item.Quantity,
			Subtotal: n.money(item.Subtotal(), order.Currency),
		})
	}
	delivery := ""
	if !order.ExpectedDelivery.IsZero() {
		delivery = order.ExpectedDelivery.Format("Mon, 02 Jan 2006")
	}
	return emailView{
		Store:         n.storeName,
		CustomerName:  markdownEscape(user.Name),
		OrderID:       order.ID,
		Status:        string(order.Status),
		PaymentMethod: string(order.PaymentMethod),
		Paid:          order.PaymentSettled,
		Total:         n.money(order.Amount, order.Currency),
		Delivery:      delivery,
		Lines:         lines,
		City:          markdownEscape(order.Address.City),
	}
}

// money formats amount in the order currency, falling back to a plain decimal for unknown codes.
func (n *EmailNotifier) money(amount decimal.Decimal, code string) string {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return amount.StringFixed(2) + " " + code
	}
	return n.printer.Sprint(currency.Symbol(unit.Amount(amount.InexactFloat64())))
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`, "#", `\#`, "<", "&lt;", ">", "&gt;",
)

func markdownEscape(value string) string {
	return markdownEscaper.Replace(value)
}

var (
	orderPlacedTemplate = template.Must(template.New("order_placed").Parse(`# Thank you for your order{{if .CustomerName}}, {{.CustomerName}}{{end}}

Order **{{.OrderID}}** has been placed with {{.Store}}.

| Item | Size | Qty | Subtotal |
|------|------|-----|----------|
{{range .Lines}}| {{.Name}} | {{.Size}} | {{.Quantity}} | {{.Subtotal}} |
{{end}}
**Total:** {{.Total}} ({{.PaymentMethod}}{{if .Paid}}, paid{{end}})
{{if .Delivery}}
Expected delivery: {{.Delivery}}
{{end}}`))

	orderPlacedAdminTemplate = template.Must(template.New("order_placed_admin").Parse(`# New order {{.OrderID}}

- Customer: {{.CustomerName}}
- Payment: {{.PaymentMethod}}{{if .Paid}} (settled){{end}}
- Total: {{.Total}}
- Items: {{len .Lines}}
{{if .City}}- Ship to: {{.City}}
{{end}}`))

	orderUpdatedTemplate = template.Must(template.New("order_updated").Parse(`# Your order is now {{.Status}}

Order **{{.OrderID}}** moved to *{{.Status}}*.
{{if .Delivery}}
Expected delivery: {{.Delivery}}
{{end}}`))
)
