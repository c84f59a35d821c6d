// Package config holds the CLI settings: built-in defaults, an optional HCL
// file, and validation. Command-line flags are applied on top by cmd.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

const (
	DefaultProfile     = "shotty"
	DefaultWaitTimeout = 10 * time.Minute
	DefaultLogLevel    = "error"

	LogFormatConsole     = "console"
	LogFormatDevelopment = "development"
	DefaultLogFormat     = LogFormatConsole

	attrProfile     = "profile"
	attrRegion      = "region"
	attrWaitTimeout = "wait_timeout"
	attrLogLevel    = "log_level"
	attrLogFormat   = "log_format"
)

var regionPattern = regexp.MustCompile(`^[a-z]{2}(-[a-z]+)+-\d+$`)

type Config struct {
	Profile     string        `validate:"required"`
	Region      string        `validate:"omitempty,aws_region"`
	WaitTimeout time.Duration `validate:"gt=0"`
	LogLevel    string        `validate:"oneof=debug info warn error"`
	LogFormat   string        `validate:"oneof=console development"`
}

func Default() *Config {
	return &Config{
		Profile:     DefaultProfile,
		WaitTimeout: DefaultWaitTimeout,
		LogLevel:    DefaultLogLevel,
		LogFormat:   DefaultLogFormat,
	}
}

// LoadFile applies the attributes of an HCL file on top of the defaults:
//
//	profile      = "shotty"
//	region       = "eu-west-1"
//	wait_timeout = "15m"
//	log_level    = "info"
//	log_format   = "development"
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(content, path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config file: %s", diags.Error())
	}

	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, errors.New("unexpected config body type")
	}

	if len(body.Blocks) > 0 {
		block := body.Blocks[0]
		return nil, fmt.Errorf("%s: blocks are not supported (found %q)", block.TypeRange.String(), block.Type)
	}

	names := make([]string, 0, len(body.Attributes))
	for name := range body.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		attr := body.Attributes[name]
		value, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to evaluate %s: %s", name, diags.Error())
		}

		if err := cfg.apply(name, value); err != nil {
			return nil, fmt.Errorf("%s: %w", attr.SrcRange.String(), err)
		}
	}

	return cfg, nil
}

func (c *Config) apply(name string, value cty.Value) error {
	switch name {
	case attrProfile, attrRegion, attrWaitTimeout, attrLogLevel, attrLogFormat:
	default:
		return fmt.Errorf("unknown attribute %q", name)
	}

	if value.IsNull() || !value.IsKnown() || value.Type() != cty.String {
		return fmt.Errorf("attribute %q must be a string", name)
	}
	s := value.AsString()

	switch name {
	case attrProfile:
		c.Profile = s
	case attrRegion:
		c.Region = s
	case attrLogLevel:
		c.LogLevel = s
	case attrLogFormat:
		c.LogFormat = s
	case attrWaitTimeout:
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", attrWaitTimeout, err)
		}
		c.WaitTimeout = d
	}
	return nil
}

func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.RegisterValidation("aws_region", func(fl validator.FieldLevel) bool {
		return regionPattern.MatchString(fl.Field().String())
	}); err != nil {
		return err
	}

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s fails %q (value %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
