// Package otlpcollector hand-maintains the ExportProfilesService request and
// response envelopes and the grpc.ServiceDesc that exposes Export, for the
// same reason internal/otlpprofiles hand-maintains the dictionary types: no
// stable generated module exists yet for this experimental OTLP signal.
package otlpcollector

import (
	"context"

	"google.golang.org/grpc"

	"github.com/rogercoll/eprofiler-tui/internal/otlpprofiles"
)

// ScopeProfiles groups the profiles produced by one instrumentation scope.
type ScopeProfiles struct {
	Profiles []*otlpprofiles.Profile
}

// ResourceProfiles groups ScopeProfiles under one resource.
type ResourceProfiles struct {
	ScopeProfiles []*ScopeProfiles
}

// ExportProfilesServiceRequest is the Export RPC's request message. A single
// Dictionary is shared by every profile the request carries.
type ExportProfilesServiceRequest struct {
	ResourceProfiles []*ResourceProfiles
	Dictionary       *otlpprofiles.Dictionary
}

// ExportProfilesServiceResponse is the Export RPC's response message.
// PartialSuccess is never set by this server (spec.md §6).
type ExportProfilesServiceResponse struct {
	RejectedProfiles int64
	ErrorMessage     string
}

// ProfilesServiceServer is implemented by the ingestion handler.
type ProfilesServiceServer interface {
	Export(ctx context.Context, req *ExportProfilesServiceRequest) (*ExportProfilesServiceResponse, error)
}

// ServiceDesc mirrors the shape protoc-gen-go-grpc would emit for
// opentelemetry.proto.collector.profiles.v1development.ProfilesService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "opentelemetry.proto.collector.profiles.v1development.ProfilesService",
	HandlerType: (*ProfilesServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Export",
			Handler:    exportHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "opentelemetry/proto/collector/profiles/v1development/profiles_service.proto",
}

func exportHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ExportProfilesServiceRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ProfilesServiceServer).Export(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/opentelemetry.proto.collector.profiles.v1development.ProfilesService/Export",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ProfilesServiceServer).Export(ctx, req.(*ExportProfilesServiceRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// RegisterProfilesServiceServer registers srv with s, the same call shape
// generated stubs expose.
func RegisterProfilesServiceServer(s grpc.ServiceRegistrar, srv ProfilesServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}
