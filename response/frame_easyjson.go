package response

import (
	"github.com/mailru/easyjson/jwriter"
)

func (v *Frame) MarshalEasyJSON(w *jwriter.Writer) {
	w.RawByte('{')
	w.RawString(`"type":`)
	w.String(v.Type)

	if v.RequestID != "" {
		w.RawString(`,"request_id":`)
		w.String(v.RequestID)
	}

	if v.Topic != "" {
		w.RawString(`,"topic":`)
		w.String(v.Topic)
	}

	if v.Message != nil {
		w.RawString(`,"message":{"id":`)
		w.String(v.Message.ID)
		w.RawString(`,"payload":`)

		if v.Message.Payload == nil {
			w.RawString(`null`)
		} else {
			w.Raw(v.Message.Payload, nil)
		}

		w.RawByte('}')
	}

	if v.Error != nil {
		w.RawString(`,"error":`)
		v.Error.MarshalEasyJSON(w)
	}

	if v.Status != "" {
		w.RawString(`,"status":`)
		w.String(v.Status)
	}

	if v.Msg != "" {
		w.RawString(`,"msg":`)
		w.String(v.Msg)
	}

	w.RawString(`,"ts":`)
	w.String(v.Ts)
	w.RawByte('}')
}

func (v *Frame) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{}
	v.MarshalEasyJSON(&w)

	return w.Buffer.BuildBytes(), w.Error
}

func (v *Err) MarshalEasyJSON(w *jwriter.Writer) {
	w.RawByte('{')
	w.RawString(`"code":`)
	w.String(v.Code)
	w.RawString(`,"message":`)
	w.String(v.Message)
	w.RawByte('}')
}

func (v *Err) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{}
	v.MarshalEasyJSON(&w)

	return w.Buffer.BuildBytes(), w.Error
}
