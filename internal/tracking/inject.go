package tracking

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var hrefPattern = regexp.MustCompile(`href="(https?://[^"]+)"`)

// Injector rewrites outgoing HTML so opens and clicks route through the
// tracking endpoint at BaseURL.
type Injector struct {
	BaseURL string
}

func NewInjector(baseURL string) *Injector {
	return &Injector{BaseURL: strings.TrimRight(baseURL, "/")}
}

// PixelURL is the open-tracking image source for one recipient.
func (i *Injector) PixelURL(campaignID, recipientID string) string {
	return fmt.Sprintf("%s%s?type=open&cid=%s&rid=%s",
		i.BaseURL, Path, url.QueryEscape(campaignID), url.QueryEscape(recipientID))
}

// ClickURL wraps target in a click-tracking redirect.
func (i *Injector) ClickURL(campaignID, recipientID, target string) string {
	return fmt.Sprintf("%s%s?type=click&cid=%s&rid=%s&url=%s",
		i.BaseURL, Path, url.QueryEscape(campaignID), url.QueryEscape(recipientID), url.QueryEscape(target))
}

// Inject rewrites every absolute http(s) href to a click URL and adds the open
// pixel before </body>, or at the end when the body has no closing tag.
func (i *Injector) Inject(html, campaignID, recipientID string) string {
	html = hrefPattern.ReplaceAllStringFunc(html, func(m string) string {
		target := hrefPattern.FindStringSubmatch(m)[1]
		return `href="` + i.ClickURL(campaignID, recipientID, target) + `"`
	})

	pixel := fmt.Sprintf(`<img src="%s" width="1" height="1" alt="" style="display:none" />`,
		i.PixelURL(campaignID, recipientID))

	lower := strings.ToLower(html)
	if idx := strings.LastIndex(lower, "</body>"); idx >= 0 {
		return html[:idx] + pixel + html[idx:]
	}
	return html + pixel
}
