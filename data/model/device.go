package model

// Device identifies the gateway that produced a result set. Topics for
// every record it returns are derived from it.
type Device struct {
	// Model is the device family name (NEFIT, IVT, EASYCONTROL).
	Model string
	UUID  string
}

func NewDevice(model, uuid string) *Device {
	return &Device{
		Model: model,
		UUID:  uuid,
	}
}

// Topic returns bosch/<model>-<uuid><recordID>. Record ids carry their own
// leading slash, so none is inserted.
func (d *Device) Topic(recordID string) string {
	return "bosch/" + d.Model + "-" + d.UUID + recordID
}
