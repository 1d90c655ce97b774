// Package detectionv1 describes the walker.v1.DetectionService stream.
// Messages travel as google.protobuf.Struct so that any protobuf client
// can push detections without generated stubs.
package detectionv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName                                    = "walker.v1.DetectionService"
	PushDetectionsStreamName                       = "PushDetections"
	DetectionService_PushDetections_FullMethodName = "/" + ServiceName + "/" + PushDetectionsStreamName
)

// Field names of a detection message.
const (
	FieldSessionID   = "session_id"
	FieldFrameIndex  = "frame_index"
	FieldTsMS        = "ts_ms"
	FieldImageWidth  = "image_width"
	FieldImageHeight = "image_height"
	FieldLabel       = "label"
	FieldScore       = "score"
	FieldXMin        = "xmin"
	FieldYMin        = "ymin"
	FieldXMax        = "xmax"
	FieldYMax        = "ymax"

	// Ack fields
	FieldReceivedCnt = "received_cnt"
)

// DetectionServiceServer is the server API for the detection stream.
type DetectionServiceServer interface {
	PushDetections(DetectionService_PushDetectionsServer) error
}

type DetectionService_PushDetectionsServer interface {
	Send(*structpb.Struct) error
	Recv() (*structpb.Struct, error)
	grpc.ServerStream
}

type detectionServicePushDetectionsServer struct {
	grpc.ServerStream
}

func (x *detectionServicePushDetectionsServer) Send(m *structpb.Struct) error {
	return x.ServerStream.SendMsg(m)
}

func (x *detectionServicePushDetectionsServer) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func pushDetectionsHandler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(DetectionServiceServer).PushDetections(&detectionServicePushDetectionsServer{stream})
}

var DetectionService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DetectionServiceServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    PushDetectionsStreamName,
			Handler:       pushDetectionsHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "walker/v1/detection.proto",
}

func RegisterDetectionServiceServer(s grpc.ServiceRegistrar, srv DetectionServiceServer) {
	s.RegisterService(&DetectionService_ServiceDesc, srv)
}

// DetectionServiceClient is the client API for the detection stream.
type DetectionServiceClient interface {
	PushDetections(ctx context.Context, opts ...grpc.CallOption) (DetectionService_PushDetectionsClient, error)
}

type DetectionService_PushDetectionsClient interface {
	Send(*structpb.Struct) error
	Recv() (*structpb.Struct, error)
	grpc.ClientStream
}

type detectionServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewDetectionServiceClient(cc grpc.ClientConnInterface) DetectionServiceClient {
	return &detectionServiceClient{cc}
}

func (c *detectionServiceClient) PushDetections(ctx context.Context, opts ...grpc.CallOption) (DetectionService_PushDetectionsClient, error) {
	stream, err := c.cc.NewStream(ctx, &DetectionService_ServiceDesc.Streams[0], DetectionService_PushDetections_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	return &detectionServicePushDetectionsClient{stream}, nil
}

type detectionServicePushDetectionsClient struct {
	grpc.ClientStream
}

func (x *detectionServicePushDetectionsClient) Send(m *structpb.Struct) error {
	return x.ClientStream.SendMsg(m)
}

func (x *detectionServicePushDetectionsClient) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
