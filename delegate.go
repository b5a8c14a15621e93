package serial

// Delegate is the required capability every Port observer must
// implement, the Go analog of ORSSerialPortDelegate's @required
// methods. Port holds its delegate as a plain interface value, which
// keeps the delegate reachable until SetDelegate(nil) or the Port
// itself is released; it is not a weak reference. A nil delegate
// silently no-ops every callback dispatch rather than panicking.
type Delegate interface {
	DidReceiveData(port *Port, data []byte)
	WasRemovedFromSystem(port *Port)
}

// PacketReceiver is an optional capability: implement it to be told
// about each packet a registered PacketDescriptor matches.
type PacketReceiver interface {
	DidReceivePacket(port *Port, packet []byte, descriptor *PacketDescriptor)
}

// ResponseReceiver is an optional capability: implement it to be told
// when a RequestQueue's in-flight request completes with a response.
type ResponseReceiver interface {
	DidReceiveResponse(port *Port, response []byte, request *Request)
}

// TimeoutObserver is an optional capability: implement it to be told
// when a RequestQueue's in-flight request times out.
type TimeoutObserver interface {
	RequestDidTimeout(port *Port, request *Request)
}

// ErrorObserver is an optional capability: implement it to be told
// about errors the Port encounters.
type ErrorObserver interface {
	DidEncounterError(port *Port, err error)
}

// LifecycleObserver is an optional capability: implement it to be told
// when a Port finishes opening or closing.
type LifecycleObserver interface {
	WasOpened(port *Port)
	WasClosed(port *Port)
}
