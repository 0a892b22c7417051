// Package bugzilla scrapes a bugzilla instance into a local archive.
//
// The pipeline is strictly sequential and never retries: recovery from any
// failure is re-running the whole scrape, which is safe because every write
// to the archive is atomic and every stage recomputes its skip set from disk.
package bugzilla

import (
	"bugvault/lib/restyutil"
	"bugvault/lib/telemetry"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("scrapers/bugzilla")

var restyInstrumentOutput restyutil.InstrumentOutput

// SetRestyInstrumentOutput enables full request/response transcript dumps for
// clients created after the call. Used by the CLI in verbose mode.
func SetRestyInstrumentOutput(output restyutil.InstrumentOutput) {
	restyInstrumentOutput = output
}

// ErrNotLoggedIn is returned when the provided session cookies are not
// accepted by the remote instance.
var ErrNotLoggedIn = errors.New("bugzilla did not recognize the session cookies")

type Client struct {
	http    *resty.Client
	baseUrl *url.URL
}

type ClientOptions struct {
	BaseUrl string
	// Session cookies to install on every request, usually the
	// Bugzilla_login/Bugzilla_logincookie pair read from a browser profile.
	Cookies map[string]string
	// Wraps the transport with a cloudflare challenge bypass, for instances
	// sitting behind cloudflare.
	CloudflareBypass bool
}

func NewClient(opts ClientOptions) (*Client, error) {
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	// no client timeout: bulk responses can be arbitrarily large and slow,
	// and a hung call is acceptable for a batch tool

	for name, value := range opts.Cookies {
		client.SetCookie(&http.Cookie{
			Name:   name,
			Value:  value,
			Domain: baseUrl.Hostname(),
			Path:   "/",
		})
	}

	telemetry.InstrumentResty(client, "scrapers/bugzilla/http")
	restyutil.InstrumentClient(client, restyInstrumentOutput)

	return &Client{http: client, baseUrl: baseUrl}, nil
}

// VerifySession fetches the front page and checks for a logout link, so a
// stale or rejected session is caught before any heavy work starts.
func (c *Client) VerifySession(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "VerifySession")
	defer span.End()

	res, err := c.http.R().SetContext(ctx).Get("index.cgi")
	if err != nil {
		return err
	}
	if res.StatusCode() != http.StatusOK {
		return fmt.Errorf("index.cgi: unexpected status %s", res.Status())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return err
	}
	if doc.Find(`a[href*="logout.cgi"]`).Length() == 0 {
		return ErrNotLoggedIn
	}
	return nil
}
