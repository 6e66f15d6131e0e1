package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidEnvironment = errors.New("invalid environment")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrUnknownField       = errors.New("unknown draft field")
)

type Environment string

const (
	EnvironmentProduction  Environment = "production"
	EnvironmentStaging     Environment = "staging"
	EnvironmentDevelopment Environment = "development"
)

// Environments lists every environment in chart order.
var Environments = []Environment{
	EnvironmentProduction,
	EnvironmentStaging,
	EnvironmentDevelopment,
}

func ParseEnvironment(s string) (Environment, error) {
	for _, env := range Environments {
		if string(env) == s {
			return env, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidEnvironment, s)
}

func (e Environment) Valid() bool {
	_, err := ParseEnvironment(string(e))
	return err == nil
}

// Label is the capitalized form shown in select options.
func (e Environment) Label() string {
	switch e {
	case EnvironmentProduction:
		return "Production"
	case EnvironmentStaging:
		return "Staging"
	case EnvironmentDevelopment:
		return "Development"
	}
	return string(e)
}

type DeploymentStatus string

const (
	DeploymentStatusPending DeploymentStatus = "pending"
	DeploymentStatusSuccess DeploymentStatus = "success"
	DeploymentStatusFailed  DeploymentStatus = "failed"
)

// Statuses lists every status in the order the form offers them.
var Statuses = []DeploymentStatus{
	DeploymentStatusPending,
	DeploymentStatusSuccess,
	DeploymentStatusFailed,
}

func ParseStatus(s string) (DeploymentStatus, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

func (s DeploymentStatus) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

func (s DeploymentStatus) Label() string {
	switch s {
	case DeploymentStatusPending:
		return "Pending"
	case DeploymentStatusSuccess:
		return "Success"
	case DeploymentStatusFailed:
		return "Failed"
	}
	return string(s)
}

// StatusIcon names the icon shown next to a status in the deployment list.
type StatusIcon string

const (
	StatusIconNone  StatusIcon = ""
	StatusIconCheck StatusIcon = "check"
	StatusIconCross StatusIcon = "cross"
	StatusIconAlert StatusIcon = "alert"
)

func (s DeploymentStatus) Icon() StatusIcon {
	switch s {
	case DeploymentStatusSuccess:
		return StatusIconCheck
	case DeploymentStatusFailed:
		return StatusIconCross
	case DeploymentStatusPending:
		return StatusIconAlert
	default:
		return StatusIconNone
	}
}

// DateLayout is the calendar date format used for Deployment.Date.
const DateLayout = "2006-01-02"

type Deployment struct {
	ID          int              `json:"id" yaml:"id"`
	Name        string           `json:"name" yaml:"name"`
	Environment Environment      `json:"environment" yaml:"environment"`
	Status      DeploymentStatus `json:"status" yaml:"status"`
	Date        string           `json:"date" yaml:"date"`
}

// Draft is the deployment being composed in the form. It has no ID or
// date until it is submitted.
type Draft struct {
	Name        string           `json:"name"`
	Environment Environment      `json:"environment"`
	Status      DeploymentStatus `json:"status"`
}

func NewDraft() Draft {
	return Draft{
		Name:        "",
		Environment: EnvironmentProduction,
		Status:      DeploymentStatusPending,
	}
}

type DraftField string

const (
	DraftFieldName        DraftField = "name"
	DraftFieldEnvironment DraftField = "environment"
	DraftFieldStatus      DraftField = "status"
)

func ParseDraftField(s string) (DraftField, error) {
	switch DraftField(s) {
	case DraftFieldName, DraftFieldEnvironment, DraftFieldStatus:
		return DraftField(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// Set applies value to field. Environment and status values must parse;
// on error the draft is left unchanged.
func (d *Draft) Set(field DraftField, value string) error {
	switch field {
	case DraftFieldName:
		d.Name = value
	case DraftFieldEnvironment:
		env, err := ParseEnvironment(value)
		if err != nil {
			return err
		}
		d.Environment = env
	case DraftFieldStatus:
		st, err := ParseStatus(value)
		if err != nil {
			return err
		}
		d.Status = st
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

// ChartPoint is one bar of the deployments-by-environment chart.
type ChartPoint struct {
	Name        Environment `json:"name"`
	Deployments int         `json:"deployments"`
}
