package pldm

// Request is an inbound PLDM request split into header and payload.
// Payload aliases the buffer the request was parsed from.
type Request struct {
	Header  Header
	Payload []byte
}

// ParseRequest splits msg into header and payload.
func ParseRequest(msg []byte) (*Request, error) {
	hdr, err := DecodeHeader(msg)
	if err != nil {
		return nil, err
	}
	return &Request{Header: hdr, Payload: msg[HeaderSize:]}, nil
}

// Response is an outbound PLDM response. Payload starts with the completion
// code.
type Response struct {
	Header  Header
	Payload []byte
}

// NewResponse builds the response to req carrying payload.
func NewResponse(req *Request, payload []byte) *Response {
	return &Response{Header: req.Header.ResponseHeader(), Payload: payload}
}

// CCOnlyResponse builds a response whose payload is the completion code alone.
func CCOnlyResponse(req *Request, cc CompletionCode) *Response {
	return NewResponse(req, []byte{byte(cc)})
}

// CompletionCode returns the leading payload byte, or Error when the payload
// is empty.
func (r *Response) CompletionCode() CompletionCode {
	if len(r.Payload) == 0 {
		return Error
	}
	return CompletionCode(r.Payload[0])
}

// Bytes returns the full wire form: header followed by payload.
func (r *Response) Bytes() []byte {
	b := make([]byte, HeaderSize+len(r.Payload))
	r.Header.put(b)
	copy(b[HeaderSize:], r.Payload)
	return b
}

// NewRequestMessage encodes a request message. Used by clients and tests.
func NewRequestMessage(instanceID, pldmType, command uint8, payload []byte) []byte {
	hdr := Header{
		Request:    true,
		InstanceID: instanceID,
		Version:    HeaderVersion,
		Type:       pldmType,
		Command:    command,
	}
	b := make([]byte, HeaderSize+len(payload))
	hdr.put(b)
	copy(b[HeaderSize:], payload)
	return b
}
