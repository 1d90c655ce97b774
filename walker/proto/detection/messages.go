package detectionv1

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// Detection is one detected object of a frame. An empty Label marks a
// frame that has no objects.
type Detection struct {
	SessionID   string
	FrameIndex  int64
	TsMS        int64
	ImageWidth  float64
	ImageHeight float64
	Label       string
	Score       float64
	XMin        float64
	YMin        float64
	XMax        float64
	YMax        float64
}

// Ack reports how many detections of a session the server accepted.
type Ack struct {
	SessionID   string
	ReceivedCnt uint64
}

func (d Detection) ToStruct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldSessionID:   structpb.NewStringValue(d.SessionID),
		FieldFrameIndex:  structpb.NewNumberValue(float64(d.FrameIndex)),
		FieldTsMS:        structpb.NewNumberValue(float64(d.TsMS)),
		FieldImageWidth:  structpb.NewNumberValue(d.ImageWidth),
		FieldImageHeight: structpb.NewNumberValue(d.ImageHeight),
		FieldLabel:       structpb.NewStringValue(d.Label),
		FieldScore:       structpb.NewNumberValue(d.Score),
		FieldXMin:        structpb.NewNumberValue(d.XMin),
		FieldYMin:        structpb.NewNumberValue(d.YMin),
		FieldXMax:        structpb.NewNumberValue(d.XMax),
		FieldYMax:        structpb.NewNumberValue(d.YMax),
	}}
}

// DetectionFromStruct reads a detection message. Missing numeric fields
// are zero; a missing session_id is an error.
func DetectionFromStruct(s *structpb.Struct) (Detection, error) {
	if s == nil {
		return Detection{}, fmt.Errorf("nil detection message")
	}

	f := s.GetFields()
	sessionID := f[FieldSessionID].GetStringValue()
	if sessionID == "" {
		return Detection{}, fmt.Errorf("missing %s", FieldSessionID)
	}

	return Detection{
		SessionID:   sessionID,
		FrameIndex:  int64(f[FieldFrameIndex].GetNumberValue()),
		TsMS:        int64(f[FieldTsMS].GetNumberValue()),
		ImageWidth:  f[FieldImageWidth].GetNumberValue(),
		ImageHeight: f[FieldImageHeight].GetNumberValue(),
		Label:       f[FieldLabel].GetStringValue(),
		Score:       f[FieldScore].GetNumberValue(),
		XMin:        f[FieldXMin].GetNumberValue(),
		YMin:        f[FieldYMin].GetNumberValue(),
		XMax:        f[FieldXMax].GetNumberValue(),
		YMax:        f[FieldYMax].GetNumberValue(),
	}, nil
}

func (a Ack) ToStruct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldSessionID:   structpb.NewStringValue(a.SessionID),
		FieldReceivedCnt: structpb.NewNumberValue(float64(a.ReceivedCnt)),
	}}
}

func AckFromStruct(s *structpb.Struct) Ack {
	f := s.GetFields()
	return Ack{
		SessionID:   f[FieldSessionID].GetStringValue(),
		ReceivedCnt: uint64(f[FieldReceivedCnt].GetNumberValue()),
	}
}
