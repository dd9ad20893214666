package ws

import (
	"encoding/json"
	"errors"

	"github.com/Triostacksoftware/HSCODE-sub000/internal/logging"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/service"
)

func Deserialize(jsonBytes []byte) (Message, error) {
	var wrapper SerializedMessage
	if err := json.Unmarshal(jsonBytes, &wrapper); err != nil {
		return nil, err
	}

	return DeserializeSerializedMessage(&wrapper)
}

func DeserializeSerializedMessage(wrapper *SerializedMessage) (Message, error) {
	msg, err := CreateMessage(wrapper.Type, typeRegistry)
	if err != nil {
		return nil, err
	}

	if len(wrapper.Payload) == 0 || string(wrapper.Payload) == "null" {
		return msg, nil
	}
	if err := FromJson(wrapper.Payload, msg); err != nil {
		return nil, err
	}

	return msg, nil
}

// errorFrame maps a processing error to the code sent back to the client.
// Authorization failures are denied silently.
func errorFrame(err error) (code string, details map[string]string, silent bool) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return "validation_failed", verr.Fields, false
	case errors.Is(err, service.ErrPremiumRequired):
		return "premium_required", nil, true
	case errors.Is(err, service.ErrNotMember):
		return "not_member", nil, false
	case errors.Is(err, service.ErrForbidden):
		return "forbidden", nil, false
	case errors.Is(err, service.ErrNotFound):
		return "not_found", nil, false
	default:
		return "processing_failed", nil, false
	}
}

// Dispatch decodes one inbound frame and processes it, answering failures
// with an error frame.
func Dispatch(ctx *MessageContext, frame []byte) {
	msg, err := Deserialize(frame)
	if err != nil {
		SendError(ctx, "invalid_message", "Invalid message format", map[string]string{"reason": err.Error()})
		return
	}
	if err := msg.Process(ctx); err != nil {
		code, details, silent := errorFrame(err)
		logging.Debug().Err(err).Uint("user_id", ctx.Client.UserID).Str("event", msg.GetType()).Str("code", code).Msg("ws message failed")
		if silent {
			return
		}
		SendError(ctx, code, err.Error(), details)
	}
}
