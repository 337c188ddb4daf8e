package chatrelay

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
)

const maxImageRedirects = 5

// Image is a downloaded image ready to be uploaded to a platform
type Image struct {
	Data        []byte
	ContentType string
	Filename    string
}

// ImageFetcher is implemented by any value that downloads images
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (img Image, err error)
}

// HTTPImageFetcher downloads images with fasthttp. The bearer token is only sent to the hosts it was
// configured for, redirects included
type HTTPImageFetcher struct {
	client     *fasthttp.Client
	timeout    time.Duration
	token      string
	tokenHosts map[string]bool
}

// FetcherOption defines an option for an HTTPImageFetcher
type FetcherOption func(f *HTTPImageFetcher)

// OptionBearerToken sets the token sent as a bearer token to requests for one of the hosts
func OptionBearerToken(token string, hosts ...string) func(f *HTTPImageFetcher) {
	return func(f *HTTPImageFetcher) {
		f.token = token
		f.tokenHosts = make(map[string]bool, len(hosts))
		for _, h := range hosts {
			f.tokenHosts[strings.ToLower(h)] = true
		}
	}
}

// NewHTTPImageFetcher returns a fetcher with the given timeout and max image size
func NewHTTPImageFetcher(timeout time.Duration, maxSizeBytes int, options ...FetcherOption) (f *HTTPImageFetcher) {
	f = new(HTTPImageFetcher)
	f.timeout = timeout
	f.tokenHosts = make(map[string]bool)
	f.client = &fasthttp.Client{
		Name:                "chatrelay",
		ReadTimeout:         timeout,
		WriteTimeout:        timeout,
		MaxResponseBodySize: maxSizeBytes,
	}

	for _, opt := range options {
		opt(f)
	}

	return f
}

// WithoutToken returns a fetcher sharing the same client that never sends a token
func (f *HTTPImageFetcher) WithoutToken() (pf *HTTPImageFetcher) {
	return &HTTPImageFetcher{client: f.client, timeout: f.timeout, tokenHosts: make(map[string]bool)}
}

// Fetch implements ImageFetcher. The filename extension is set from the response content type
func (f *HTTPImageFetcher) Fetch(ctx context.Context, url string) (img Image, err error) {
	if err = ctx.Err(); err != nil {
		return img, err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)

	for redirects := 0; ; redirects++ {
		f.authorize(req)

		if err = f.client.DoTimeout(req, resp, f.timeout); err != nil {
			return img, errors.Wrapf(err, "fetching image [%s]", url)
		}

		if !fasthttp.StatusCodeIsRedirect(resp.StatusCode()) {
			break
		}

		if redirects >= maxImageRedirects {
			return img, fmt.Errorf("fetching image [%s]: too many redirects", url)
		}

		location := resp.Header.Peek(fasthttp.HeaderLocation)
		if len(location) == 0 {
			return img, fmt.Errorf("fetching image [%s]: redirect without a location", url)
		}

		req.URI().UpdateBytes(location)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return img, fmt.Errorf("fetching image [%s]: unexpected status [%d]", url, resp.StatusCode())
	}

	img.ContentType = string(resp.Header.ContentType())
	img.Data = append([]byte(nil), resp.Body()...)
	img.Filename = filenameFor(url, img.ContentType)

	return img, nil
}

// authorize sets the bearer token on requests to a token host and removes it from any other
func (f *HTTPImageFetcher) authorize(req *fasthttp.Request) {
	req.Header.Del(fasthttp.HeaderAuthorization)

	if f.token != "" && f.tokenHosts[strings.ToLower(string(req.URI().Host()))] {
		req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+f.token)
	}
}

// filenameFor returns the last path element of the url with an extension matching the content type
func filenameFor(url string, contentType string) (name string) {
	name = path.Base(strings.SplitN(strings.SplitN(url, "?", 2)[0], "#", 2)[0])
	if name == "." || name == "/" || name == "" {
		name = "image"
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return name
	}

	exts, err := mime.ExtensionsByType(mediaType)
	if err != nil || len(exts) == 0 {
		return name
	}

	for _, ext := range exts {
		if strings.EqualFold(path.Ext(name), ext) {
			return name
		}
	}

	return strings.TrimSuffix(name, path.Ext(name)) + exts[0]
}
