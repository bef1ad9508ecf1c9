package cookies

import (
	"fmt"
	"strings"

	"github.com/google/renameio/v2"
)

// NormalizeDomain gives non-empty, non-scheme-prefixed domains a leading
// dot, marking them as domain-matching rather than host-only. Domains that
// already carry a dot or look like a URL are returned unchanged.
func NormalizeDomain(domain string) string {
	if domain == "" {
		return ""
	}
	if !strings.HasPrefix(domain, ".") && !strings.HasPrefix(domain, "http") {
		return "." + domain
	}
	return domain
}

// FormatNetscape renders records as a Netscape cookie file: comment header
// then one 7-column tab-separated line per cookie. Records with an empty
// domain are dropped. Output is deterministic for a fixed input order.
func FormatNetscape(records []Record) string {
	var b strings.Builder
	b.WriteString("# Netscape HTTP Cookie File\n")
	b.WriteString("# Generated by vidra\n")
	b.WriteString("\n")

	for _, r := range records {
		domain := NormalizeDomain(r.Domain)
		if domain == "" {
			continue
		}
		hostOnly := "FALSE"
		if strings.HasPrefix(domain, ".") {
			hostOnly = "TRUE"
		}
		path := r.Path
		if path == "" {
			path = "/"
		}
		secure := "FALSE"
		if r.Secure {
			secure = "TRUE"
		}
		expiry := r.Expiry
		if expiry < 0 {
			expiry = 0
		}
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			domain, hostOnly, path, secure, expiry, r.Name, r.Value)
	}
	return b.String()
}

// WriteJar atomically writes the Netscape-format jar to path.
func WriteJar(path string, records []Record) error {
	content := FormatNetscape(records)
	if err := renameio.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("writing cookie jar: %w", err)
	}
	return nil
}
