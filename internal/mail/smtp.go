package mail

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"os"

	"github.com/ayyo42069/tuning-portal-react-sub000/internal/config"
	"gopkg.in/gomail.v2"
)

type SMTPMailSender struct {
	*gomail.Dialer
	From string
}

func (s *SMTPMailSender) Send(message *Message) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.From)
	msg.SetHeader("To", message.To...)
	if len(message.Cc) > 0 {
		msg.SetHeader("Cc", message.Cc...)
	}
	msg.SetHeader("Subject", message.Subject)
	if message.IsHTML {
		msg.SetBody("text/html", message.Body)
	} else {
		msg.SetBody("text/plain", message.Body)
	}
	return s.DialAndSend(msg)
}

func loadTLSConfig(smtpCfg config.SMTPConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{ServerName: smtpCfg.Host}
	if !smtpCfg.TLS {
		return tlsConfig, nil
	}
	if smtpCfg.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(smtpCfg.CertFile, smtpCfg.KeyFile)
		if err != nil {
			return nil, err
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	if smtpCfg.CAFile != "" {
		caCert, err := os.ReadFile(smtpCfg.CAFile)
		if err != nil {
			return nil, err
		}
		caPool := x509.NewCertPool()
		if !caPool.AppendCertsFromPEM(caCert) {
			return nil, errors.New("no certificates found in " + smtpCfg.CAFile)
		}
		tlsConfig.RootCAs = caPool
	}
	return tlsConfig, nil
}

func NewSMTPMailSender(smtpCfg config.SMTPConfig, from string) (*SMTPMailSender, error) {
	if smtpCfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	tlsConfig, err := loadTLSConfig(smtpCfg)
	if err != nil {
		return nil, err
	}
	dialer := gomail.NewDialer(smtpCfg.Host, smtpCfg.Port, smtpCfg.Username, smtpCfg.Password)
	dialer.TLSConfig = tlsConfig
	dialer.SSL = smtpCfg.TLS && smtpCfg.Port == 465
	return &SMTPMailSender{
		Dialer: dialer,
		From:   from,
	}, nil
}
