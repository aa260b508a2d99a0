package server

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
)

// hopByHopHeaders must not be forwarded in either direction. The session
// cookie is stripped too so it never reaches the downloader.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// newTransmissionProxy builds the admin-gated reverse proxy to the download
// manager, injecting its basic-auth credentials on the way out.
func (a *App) newTransmissionProxy() (http.Handler, error) {
	target, err := url.Parse(a.cfg.TransmissionURL)
	if err != nil {
		return nil, fmt.Errorf("parse transmission url: %w", err)
	}
	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.Host = target.Host
			for _, h := range hopByHopHeaders {
				pr.Out.Header.Del(h)
			}
			pr.Out.Header.Del("Cookie")
			pr.Out.SetBasicAuth(a.cfg.TransmissionUser, a.cfg.TransmissionPass)
		},
		ModifyResponse: func(resp *http.Response) error {
			for _, h := range hopByHopHeaders {
				resp.Header.Del(h)
			}
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			a.logger.Error("transmission proxy", "err", err)
			a.writeError(w, http.StatusBadGateway, "transmission is not available")
		},
	}
	return proxy, nil
}

func (a *App) handleProxy(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	a.proxy.ServeHTTP(w, r)
}
