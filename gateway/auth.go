package gateway

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	v4 "github.com/aws/aws-sdk-go/aws/signer/v4"
)

// AuthMode selects how requests to the backend are authenticated
type AuthMode string

const (
	AuthNone  AuthMode = "none"
	AuthBasic AuthMode = "basic"
	AuthSigV4 AuthMode = "sigv4"
)

// DefaultSigV4Service is the signing name of managed OpenSearch domains
const DefaultSigV4Service = "es"

// AuthConfig holds backend credentials
type AuthConfig struct {
	Mode     AuthMode
	Username string
	Password string

	// SigV4 settings. Static keys are optional; the default AWS
	// credential chain is used when they are empty.
	Region          string
	Service         string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

type authenticator interface {
	authenticate(req *http.Request, body []byte) error
}

type noAuth struct{}

func (noAuth) authenticate(*http.Request, []byte) error { return nil }

type basicAuth struct {
	username string
	password string
}

func (a basicAuth) authenticate(req *http.Request, _ []byte) error {
	req.SetBasicAuth(a.username, a.password)
	return nil
}

type sigV4Auth struct {
	signer  *v4.Signer
	region  string
	service string
}

func (a sigV4Auth) authenticate(req *http.Request, body []byte) error {
	_, err := a.signer.Sign(req, bytes.NewReader(body), a.service, a.region, time.Now())
	return err
}

func newAuthenticator(cfg AuthConfig) (authenticator, error) {
	switch cfg.Mode {
	case "", AuthNone:
		return noAuth{}, nil
	case AuthBasic:
		if cfg.Username == "" {
			return nil, fmt.Errorf("basic auth requires a username")
		}
		return basicAuth{username: cfg.Username, password: cfg.Password}, nil
	case AuthSigV4:
		if cfg.Region == "" {
			return nil, fmt.Errorf("sigv4 auth requires a region")
		}
		service := cfg.Service
		if service == "" {
			service = DefaultSigV4Service
		}
		creds, err := awsCredentials(cfg)
		if err != nil {
			return nil, err
		}
		return sigV4Auth{signer: v4.NewSigner(creds), region: cfg.Region, service: service}, nil
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Mode)
	}
}

func awsCredentials(cfg AuthConfig) (*credentials.Credentials, error) {
	if cfg.AccessKeyID != "" {
		return credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken), nil
	}
	sess, err := session.NewSession(&aws.Config{Region: aws.String(cfg.Region)})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return sess.Config.Credentials, nil
}
