package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags and the rules that span sections.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return formatValidationErrors(verrs)
		}
		return err
	}

	switch cfg.Source.Type {
	case "fs":
		if cfg.Source.FS.Root == "" {
			return errors.New("source.fs.root is required when source.type is fs")
		}
	case "s3":
		if cfg.Source.S3.Bucket == "" {
			return errors.New("source.s3.bucket is required when source.type is s3")
		}
		if (cfg.Source.S3.AccessKeyID == "") != (cfg.Source.S3.SecretAccessKey == "") {
			return errors.New("source.s3.access_key_id and secret_access_key must be set together")
		}
	}

	if cfg.Metrics.Enabled && cfg.API.Enabled && cfg.Metrics.Port == cfg.API.Port {
		return fmt.Errorf("metrics.port and api.port must differ (both %d)", cfg.API.Port)
	}
	return nil
}

// formatValidationErrors renders every failed field on one line each, e.g.
// "Config.Cache.MaxEntries failed on 'gt' (param: 0, value: -1)".
func formatValidationErrors(verrs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msg += fmt.Sprintf(" (param: %s, value: %v)", fe.Param(), fe.Value())
		}
		msgs = append(msgs, msg)
	}
	return errors.New(strings.Join(msgs, "; "))
}
