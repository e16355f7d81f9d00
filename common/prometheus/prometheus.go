// common/prometheus/prometheus.go

package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DefaultRegistry — стандартный глобальный реестр метрик.
	DefaultRegistry = prometheus.DefaultRegisterer

	// DefaultGatherer используется Handler'ом.
	DefaultGatherer = prometheus.DefaultGatherer
)

// Handler возвращает HTTP-обработчик для /metrics.
// Подключается в common/httpserver по пути из конфига.
func Handler() http.Handler {
	return promhttp.HandlerFor(DefaultGatherer, promhttp.HandlerOpts{})
}

// MustRegisterMany регистрирует несколько коллекторов одной строкой.
// Повторная регистрация того же коллектора не считается ошибкой.
func MustRegisterMany(cs ...prometheus.Collector) {
	for _, c := range cs {
		if err := DefaultRegistry.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			panic(err)
		}
	}
}
