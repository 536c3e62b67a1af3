// Command localizationsample is a minimal site used by the end-to-end tests. It renders a
// heading in the culture selected by the locale cookie, reading the text from
// <resources path>/Startup.<culture>.txt and falling back to the parent culture and then
// to English.
package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/launchdarkly/sample-site-tests/servicedef"
)

const (
	defaultURL           = "http://localhost:5000/"
	defaultResourcesPath = "My/Resources"
	defaultHeading       = "Hello"
)

type site struct {
	resourcesPath string
	environment   string
}

func main() {
	baseURL := envOrDefault(servicedef.EnvURLs, defaultURL)
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		log.Fatalf("invalid %s value %q", servicedef.EnvURLs, baseURL)
	}

	s := &site{
		resourcesPath: envOrDefault(servicedef.EnvResourcesPath, defaultResourcesPath),
		environment:   envOrDefault(servicedef.EnvEnvironment, "Production"),
	}
	server := &http.Server{Addr: u.Host, Handler: http.HandlerFunc(s.serveHTTP)}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf("Listening on %s (environment %s, target framework %s)",
		u.Host, s.environment, os.Getenv(servicedef.EnvTargetFramework))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

func (s *site) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	uiCulture := ""
	if c, err := r.Cookie(servicedef.DefaultCookieName); err == nil {
		if _, uic, err := servicedef.ParseLocaleCookieValue(c.Value); err == nil {
			uiCulture = uic
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, servicedef.SamplePage(s.heading(uiCulture)))
}

func (s *site) heading(culture string) string {
	for _, c := range fallbackChain(culture) {
		data, err := os.ReadFile(filepath.Join(s.resourcesPath, "Startup."+c+".txt"))
		if err == nil {
			return strings.TrimSpace(string(data))
		}
	}
	return defaultHeading
}

// fallbackChain returns "fr-FR", "fr" for "fr-FR".
func fallbackChain(culture string) []string {
	var chain []string
	for culture != "" && !strings.ContainsAny(culture, `/\.`) {
		chain = append(chain, culture)
		i := strings.LastIndex(culture, "-")
		if i < 0 {
			break
		}
		culture = culture[:i]
	}
	return chain
}

func envOrDefault(name, defaultValue string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return defaultValue
}
