// Package surface builds and publishes a tenant's grouping command: the
// single externally visible command whose sub-commands are the tenant's
// custom commands.
package surface

import (
	"context"
	"fmt"

	"github.com/roach88/guildscript/internal/ir"
)

// DefaultGroup is the grouping command name used when none is configured.
const DefaultGroup = "custom"

// Platform limits on descriptions.
const (
	maxDescription      = 100
	fallbackDescription = "No description"
)

// OptionType is the platform's numeric option type code.
type OptionType int

const (
	OptionSubCommand OptionType = 1
	OptionString     OptionType = 3
	OptionInteger    OptionType = 4
	OptionBoolean    OptionType = 5
	OptionNumber     OptionType = 10
)

var paramOptionTypes = map[ir.ParamType]OptionType{
	ir.ParamBool:    OptionBoolean,
	ir.ParamInteger: OptionInteger,
	ir.ParamNumber:  OptionNumber,
	ir.ParamString:  OptionString,
}

// Option is a sub-command or a parameter of one.
type Option struct {
	Type        OptionType `json:"type"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Required    bool       `json:"required,omitempty"`
	Options     []Option   `json:"options,omitempty"`
}

// GroupCommand is the published command.
type GroupCommand struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Options     []Option `json:"options"`
}

// Build returns the grouping command for records, one sub-command per record
// in the given order. The boolean is false when records is empty, in which
// case the command must be retracted instead of published.
func Build(group string, records []ir.Record) (GroupCommand, bool) {
	if group == "" {
		group = DefaultGroup
	}
	cmd := GroupCommand{
		Name:        group,
		Description: "Custom commands",
		Options:     make([]Option, 0, len(records)),
	}
	for _, rec := range records {
		sub := Option{
			Type:        OptionSubCommand,
			Name:        rec.Name,
			Description: describe(rec.Description),
		}
		for _, p := range rec.Parameters {
			sub.Options = append(sub.Options, Option{
				Type:        paramOptionTypes[p.Type],
				Name:        p.Name,
				Description: describe(p.Description),
				Required:    p.Required,
			})
		}
		cmd.Options = append(cmd.Options, sub)
	}
	return cmd, len(records) > 0
}

func describe(s string) string {
	if s == "" {
		return fallbackDescription
	}
	if r := []rune(s); len(r) > maxDescription {
		return string(r[:maxDescription])
	}
	return s
}

// Publisher installs or removes a tenant's grouping command on the platform.
type Publisher interface {
	Publish(ctx context.Context, tenant string, cmd GroupCommand) error
	Retract(ctx context.Context, tenant string) error
}

// SyncError reports a failed publish or retract.
type SyncError struct {
	Tenant string
	Op     string // "publish" or "retract"
	Err    error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("%s grouping command for tenant %s: %v", e.Op, e.Tenant, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Sync publishes the grouping command for records, or retracts it when
// records is empty. Failures are returned as *SyncError.
func Sync(ctx context.Context, p Publisher, tenant, group string, records []ir.Record) error {
	cmd, ok := Build(group, records)
	if !ok {
		if err := p.Retract(ctx, tenant); err != nil {
			return &SyncError{Tenant: tenant, Op: "retract", Err: err}
		}
		return nil
	}
	if err := p.Publish(ctx, tenant, cmd); err != nil {
		return &SyncError{Tenant: tenant, Op: "publish", Err: err}
	}
	return nil
}
