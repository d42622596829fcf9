package events

import (
	"context"

	"github.com/groblegark/formsync/internal/model"
)

// Event topic constants
const (
	TopicFormatCreated = "formats.format.created"
	TopicFormatUpdated = "formats.format.updated"
	TopicFormatDeleted = "formats.format.deleted"

	TopicInstanceCreated = "formats.instance.created"
	TopicInstanceDeleted = "formats.instance.deleted"

	TopicDeployCompleted   = "formats.deploy.completed"
	TopicDeploymentRemoved = "formats.deployment.removed"
)

// Event types

type FormatCreated struct {
	Format *model.Format `json:"format"`
}

type FormatUpdated struct {
	Format        *model.Format `json:"format"`
	VersionBumped bool          `json:"version_bumped"`
}

type FormatDeleted struct {
	FormatID string `json:"format_id"`
}

type InstanceCreated struct {
	Instance *model.Instance `json:"instance"`
}

type InstanceDeleted struct {
	InstanceID string `json:"instance_id"`
}

// DeployCompleted is published once per finished batch deployment,
// whether or not individual items failed. All three buckets carry
// format names.
type DeployCompleted struct {
	InstanceID string   `json:"instance_id"`
	Created    []string `json:"created"`
	Updated    []string `json:"updated"`
	Failed     []string `json:"failed"`
}

type DeploymentRemoved struct {
	DeploymentID string `json:"deployment_id"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
