package kafka

import (
	"crypto/tls"

	"github.com/IBM/sarama"
	"github.com/lovoo/goka"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl/plain"
)

// Security holds optional broker transport settings. The zero value is
// plaintext without authentication.
type Security struct {
	TLS  *tls.Config
	User string
	Pass string
}

// ClientOpts returns the franz-go options for s.
func (s Security) ClientOpts() []kgo.Opt {
	var opts []kgo.Opt
	if s.TLS != nil {
		opts = append(opts, kgo.DialTLSConfig(s.TLS))
	}
	if s.User != "" {
		opts = append(opts, kgo.SASL(plain.Auth{User: s.User, Pass: s.Pass}.AsMechanism()))
	}
	return opts
}

// ApplySASLTLS installs s into the global goka config. It must run before
// any goka processor, view or emitter is created.
func ApplySASLTLS(s Security) {
	cfg := goka.DefaultConfig()
	applySarama(cfg, s)
	goka.ReplaceGlobalConfig(cfg)
}

func applySarama(cfg *sarama.Config, s Security) {
	if s.TLS != nil {
		cfg.Net.TLS.Enable = true
		cfg.Net.TLS.Config = s.TLS
	}
	if s.User != "" {
		cfg.Net.SASL.Enable = true
		cfg.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		cfg.Net.SASL.User = s.User
		cfg.Net.SASL.Password = s.Pass
	}
}
