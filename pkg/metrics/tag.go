package metrics

import (
	"strconv"
	"strings"
)

const (
	TagEnv                   = "env"
	TagService               = "service"
	TagMethod                = "method"
	TagGrpcStatusCode        = "grpc_status_code"
	TagExternalService       = "external_service"
	TagCommunicationProtocol = "communication_protocol"
	TagModelName             = "model_name"
	TagModelVersion          = "model_version"
	TagCallerId              = "caller_id"
	TagErrorType             = "error_type"
	TagApi                   = "api"
	TagStatus                = "status"

	TagValueCommunicationProtocolGrpc = "grpc"
)

type Tag struct {
	Name  string
	Value string
}

func NewTag(name, value string) Tag {
	return Tag{
		Name:  name,
		Value: value,
	}
}

func BuildTag(tags ...Tag) []string {
	allTags := make([]string, 0, len(tags))
	for _, tag := range tags {
		allTags = append(allTags, TagAsString(tag.Name, tag.Value))
	}
	return allTags
}

// normalizeTagValue replaces characters DogStatsD would misread; "/" is kept
// so method paths stay readable.
func normalizeTagValue(value string) string {
	problematicChars := []string{":", " ", "\\", ",", "|", "@", "#"}
	normalized := value
	for _, char := range problematicChars {
		normalized = strings.ReplaceAll(normalized, char, "_")
	}
	return normalized
}

func TagAsString(name string, value string) string {
	return name + ":" + normalizeTagValue(value)
}

func BuildExternalGRPCServiceTags(service, method string, statusCode int) []string {
	return BuildTag(
		NewTag(TagCommunicationProtocol, TagValueCommunicationProtocolGrpc),
		NewTag(TagExternalService, service),
		NewTag(TagMethod, method),
		NewTag(TagGrpcStatusCode, strconv.Itoa(statusCode)),
	)
}
