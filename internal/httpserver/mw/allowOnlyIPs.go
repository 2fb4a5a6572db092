package mw

import (
	"net/http"

	"github.com/MrSnakeDoc/marksync/internal/logger"
	"github.com/MrSnakeDoc/marksync/internal/utils"
)

// AllowOnlyCIDRS restricts a route to the given IPs/CIDRs. An empty list
// means loopback only. Invalid entries are logged and ignored.
// trustProxy resolves the client from forwarding headers (reverse proxy or tunnel in front).
func AllowOnlyCIDRS(allowed []string, trustProxy bool, log logger.Logger) func(http.Handler) http.Handler {
	set, err := utils.ParseCIDRSet(allowed)
	if err != nil {
		log.Warn("AllowOnlyCIDRS: ignoring invalid entries", logger.Error(err))
	}

	log.Debug("AllowOnlyCIDRS: initialized",
		logger.Strings("networks", set.Strings()),
		logger.Bool("trust_proxy", trustProxy))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr := utils.ClientAddr(r, trustProxy)
			if !set.Contains(addr) {
				log.Debug("AllowOnlyCIDRS: rejected",
					logger.String("client_ip", addr.String()),
					logger.String("remote_addr", r.RemoteAddr),
					logger.String("path", r.URL.Path))
				reject(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
