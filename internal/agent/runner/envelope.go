package runner

import (
	"fmt"
	"strconv"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/agentflow/internal/agent/ids"
	"github.com/drblury/agentflow/internal/agent/jsoncodec"
	"github.com/drblury/agentflow/internal/agent/metadata"
	"github.com/drblury/agentflow/internal/agent/process"
)

// StepTopic names the queue carrying tasks for one step of a process.
func StepTopic(processName, stepName string) string {
	return fmt.Sprintf("agentflow.process.%s.%s", processName, stepName)
}

// FailureTopic names the queue carrying failure notifications for a process.
func FailureTopic(processName string) string {
	return fmt.Sprintf("agentflow.process.%s.failed", processName)
}

// failureEnvelope is published to the failure topic when a process aborts.
type failureEnvelope struct {
	Data   *process.Data `json:"data"`
	Step   string        `json:"step"`
	Reason string        `json:"reason"`
}

func taskMessage(data *process.Data, md metadata.Metadata) (*message.Message, error) {
	payload, err := jsoncodec.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal task payload: %w", err)
	}
	msg := message.NewMessage(ids.CreateULID(), payload)
	for k, v := range md {
		msg.Metadata[k] = v
	}
	return msg, nil
}

func decodeTask(payload []byte) (*process.Data, error) {
	var data process.Data
	if err := jsoncodec.Unmarshal(payload, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func failureMessage(env failureEnvelope, md metadata.Metadata) (*message.Message, error) {
	payload, err := jsoncodec.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal failure payload: %w", err)
	}
	msg := message.NewMessage(ids.CreateULID(), payload)
	for k, v := range md {
		msg.Metadata[k] = v
	}
	return msg, nil
}

func decodeFailure(payload []byte) (failureEnvelope, error) {
	var env failureEnvelope
	err := jsoncodec.Unmarshal(payload, &env)
	return env, err
}

func attemptFrom(md message.Metadata) int {
	attempt, err := strconv.Atoi(md[metadata.KeyAttempt])
	if err != nil || attempt < 0 {
		return 0
	}
	return attempt
}

func taskMetadata(msg *message.Message, data *process.Data, processType, stepName string, attempt int) metadata.Metadata {
	md := metadata.New(
		metadata.KeyProcessID, data.ProcessID,
		metadata.KeyProcessType, processType,
		metadata.KeyStepName, stepName,
		metadata.KeyAttempt, strconv.Itoa(attempt),
	)
	if msg != nil {
		if correlationID := msg.Metadata[metadata.KeyCorrelationID]; correlationID != "" {
			md[metadata.KeyCorrelationID] = correlationID
		}
	}
	return md
}
