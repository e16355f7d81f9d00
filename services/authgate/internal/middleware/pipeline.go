// services/authgate/internal/middleware/pipeline.go

// Package middleware собирает цепочку аутентификации: ротация refresh-токена,
// затем шлюз доступа. Порядок стадий задаётся явно при старте.
package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/YaganovValera/storefront-auth/common/logger"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/autherr"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/metrics"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/response"
)

// Finalizer дописывает заголовки (cookies) в ответ после успешного обработчика.
type Finalizer func(w http.ResponseWriter)

// Stage — одна стадия пайплайна.
// Admit либо возвращает (возможно обогащённый) запрос, либо ошибку *autherr.Error,
// после которой обработчик не вызывается.
type Stage interface {
	Name() string
	Admit(r *http.Request) (*http.Request, Finalizer, error)
}

// Pipeline выполняет стадии по порядку и применяет их финализаторы.
type Pipeline struct {
	stages []Stage
	log    *logger.Logger
}

func NewPipeline(log *logger.Logger, stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages, log: log.Named("pipeline")}
}

// DefaultStages — рабочий порядок: ротация до шлюза, иначе шлюз увидит
// просроченный access-токен раньше, чем его заменят.
func DefaultStages(rotation *Rotation, gate *Gate) []Stage {
	return []Stage{rotation, gate}
}

// Names возвращает имена стадий в порядке выполнения.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Wrap оборачивает next.
func (p *Pipeline) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var finalizers []Finalizer
		for _, s := range p.stages {
			nr, fin, err := s.Admit(r)
			if err != nil {
				p.reject(r, s.Name(), err)
				response.Error(w, err)
				return
			}
			r = nr
			if fin != nil {
				finalizers = append(finalizers, fin)
			}
		}

		if len(finalizers) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		buf := newBufferedWriter(w)
		next.ServeHTTP(buf, r)

		if err := r.Context().Err(); err != nil {
			p.log.WithContext(r.Context()).Debug("request cancelled, cookies dropped", zap.Error(err))
		} else {
			for _, fin := range finalizers {
				fin(buf)
			}
		}
		buf.flush()
	})
}

func (p *Pipeline) reject(r *http.Request, stage string, err error) {
	kind := autherr.KindOf(err)
	metrics.Rejections.WithLabelValues(stage, string(kind)).Inc()

	log := p.log.WithContext(r.Context())
	fields := []zap.Field{
		zap.String("stage", stage),
		zap.String("kind", string(kind)),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	}
	if autherr.Status(kind) >= http.StatusInternalServerError {
		log.Error("request rejected", fields...)
		return
	}
	log.Debug("request rejected", fields...)
}
