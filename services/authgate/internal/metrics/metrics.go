// services/authgate/internal/metrics/metrics.go
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// Rotations — исходы ротации refresh-токена: ok | refresh_invalid | refresh_revoked | store_unavailable.
	Rotations *prometheus.CounterVec
	// Rejections — отказы пайплайна по стадии и Kind.
	Rejections *prometheus.CounterVec
	// Logins — попытки входа: ok | user_not_found | invalid_credentials | error.
	Logins *prometheus.CounterVec
	// Registrations — успешные регистрации.
	Registrations prometheus.Counter
	// Logouts — успешные выходы.
	Logouts prometheus.Counter
	// IssuedTokens — выпущенные токены по типу.
	IssuedTokens *prometheus.CounterVec
	// DroppedEvents — события аудита, отброшенные из-за переполненной очереди.
	DroppedEvents prometheus.Counter
)

func init() { Register(nil) }

// Register инициализирует и регистрирует метрики ровно один раз.
// r == nil → prometheus.DefaultRegisterer; повторная регистрация игнорируется.
func Register(r prometheus.Registerer) {
	once.Do(func() {
		if r == nil {
			r = prometheus.DefaultRegisterer
		}

		Rotations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authgate", Subsystem: "rotation", Name: "attempts_total",
			Help: "Refresh token rotation attempts by outcome",
		}, []string{"outcome"})
		Rejections = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authgate", Subsystem: "pipeline", Name: "rejections_total",
			Help: "Requests rejected by a pipeline stage",
		}, []string{"stage", "kind"})
		Logins = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authgate", Subsystem: "usecase", Name: "logins_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"})
		Registrations = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "authgate", Subsystem: "usecase", Name: "registrations_total",
			Help: "Users registered",
		})
		Logouts = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "authgate", Subsystem: "usecase", Name: "logouts_total",
			Help: "Sessions terminated by logout",
		})
		IssuedTokens = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authgate", Subsystem: "token", Name: "issued_total",
			Help: "Tokens issued by type",
		}, []string{"type"})
		DroppedEvents = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "authgate", Subsystem: "events", Name: "dropped_total",
			Help: "Auth events dropped because the delivery queue was full",
		})

		collectors := []prometheus.Collector{
			Rotations, Rejections, Logins, Registrations, Logouts, IssuedTokens, DroppedEvents,
		}
		for _, c := range collectors {
			if err := r.Register(c); err != nil {
				if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
					panic(err)
				}
			}
		}
	})
}
