package notify

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"net/http"

	html "github.com/gofiber/template/html/v2"

	"makiti/internal/domain"
)

//go:embed templates/*.html
var templateFiles embed.FS

var subjects = map[string]func(data map[string]any) string{
	domain.EmailSellerApproved: func(map[string]any) string { return "Your seller account has been approved" },
	domain.EmailSellerRejected: func(map[string]any) string { return "Update on your seller request" },
	domain.EmailNewOrder:       func(d map[string]any) string { return fmt.Sprintf("New order #%v", d["OrderID"]) },
	domain.EmailOrderStatus:    func(d map[string]any) string { return fmt.Sprintf("Order #%v is now %v", d["OrderID"], d["Status"]) },
	domain.EmailLowStock:       func(d map[string]any) string { return fmt.Sprintf("Low stock: %v", d["ProductName"]) },
}

// Templates renders the embedded email bodies.
type Templates struct {
	engine *html.Engine
}

func LoadTemplates() (*Templates, error) {
	sub, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		return nil, err
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	if err := engine.Load(); err != nil {
		return nil, fmt.Errorf("load email templates: %w", err)
	}
	return &Templates{engine: engine}, nil
}

// Render returns the subject and HTML body of the named email.
func (t *Templates) Render(name string, data map[string]any) (string, string, error) {
	subject, ok := subjects[name]
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", name)
	}
	var buf bytes.Buffer
	if err := t.engine.Render(&buf, name, data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", name, err)
	}
	return subject(data), buf.String(), nil
}
