// Package cookies acquires browser session cookies for the target site,
// persisting them as a Netscape-format jar consumed by yt-dlp. Extraction
// runs through an ordered list of fallback strategies backed by a
// time-boxed on-disk cache.
package cookies

import "strings"

// Source identifies which mechanism produced a set of cookies.
type Source string

const (
	// SourceBrowser is the headless-browser automation strategy.
	SourceBrowser Source = "browser"
	// SourceProfile is the direct browser-profile database read.
	SourceProfile Source = "profile"
	// SourceCDP is the Chrome remote-debug protocol strategy.
	SourceCDP Source = "chrome_cdp"
	// SourceManual means a cookie jar the user placed on disk themselves.
	SourceManual Source = "manual"
	// SourceFile means an existing jar file was used without extraction.
	SourceFile Source = "file"
)

// Record is a single extracted cookie. Expiry is unix seconds; 0 marks a
// session cookie.
type Record struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain"`
	Path   string `json:"path"`
	Secure bool   `json:"secure"`
	Expiry int64  `json:"expiry"`
}

// Result is the outcome of one extraction attempt. Strategies never return
// errors; failures are captured in Error with Success=false.
type Result struct {
	Success  bool     `json:"success"`
	Cookies  []Record `json:"cookies"`
	Source   Source   `json:"source,omitempty"`
	Error    string   `json:"error,omitempty"`
	AgeHours float64  `json:"age_hours"`
}

// filterDomains keeps records whose domain contains any of the given
// domains. Plain substring containment, matching the site and its auth
// provider.
func filterDomains(records []Record, domains []string) []Record {
	var filtered []Record
	for _, r := range records {
		for _, d := range domains {
			if strings.Contains(r.Domain, d) {
				filtered = append(filtered, r)
				break
			}
		}
	}
	return filtered
}
