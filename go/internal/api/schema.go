package api

import (
	"fmt"
	"sync"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	packageName = "courtside.v1"
	schemaFile  = "courtside/v1/courtside.proto"
	structType  = ".google.protobuf.Struct"

	AuthServiceName     = packageName + ".AuthService"
	ScoringServiceName  = packageName + ".ScoringService"
	ScheduleServiceName = packageName + ".ScheduleService"
	AdminServiceName    = packageName + ".AdminService"
)

// ServiceNames lists every service the server exposes, for reflection.
var ServiceNames = []string{
	AuthServiceName,
	ScoringServiceName,
	ScheduleServiceName,
	AdminServiceName,
}

// Every method takes and returns google.protobuf.Struct, so the schema is
// built from the method table instead of generated code. It is registered
// once in the global registry where the reflection handler finds it.
var (
	schemaOnce sync.Once
	schemaFD   protoreflect.FileDescriptor
	schemaErr  error
)

func registerSchema(procs []procedure) (protoreflect.FileDescriptor, error) {
	schemaOnce.Do(func() {
		schemaFD, schemaErr = buildSchema(procs)
		if schemaErr == nil {
			schemaErr = protoregistry.GlobalFiles.RegisterFile(schemaFD)
		}
	})
	return schemaFD, schemaErr
}

func buildSchema(procs []procedure) (protoreflect.FileDescriptor, error) {
	// keeps struct.proto linked in and registered before we resolve it
	_ = structpb.Struct{}

	fdp := &descriptorpb.FileDescriptorProto{
		Name:       proto.String(schemaFile),
		Package:    proto.String(packageName),
		Dependency: []string{"google/protobuf/struct.proto"},
		Syntax:     proto.String("proto3"),
	}
	index := make(map[string]*descriptorpb.ServiceDescriptorProto)
	for _, p := range procs {
		sdp, ok := index[p.service]
		if !ok {
			sdp = &descriptorpb.ServiceDescriptorProto{Name: proto.String(shortName(p.service))}
			index[p.service] = sdp
			fdp.Service = append(fdp.Service, sdp)
		}
		sdp.Method = append(sdp.Method, &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(p.method),
			InputType:  proto.String(structType),
			OutputType: proto.String(structType),
		})
	}

	fd, err := protodesc.NewFile(fdp, protoregistry.GlobalFiles)
	if err != nil {
		return nil, fmt.Errorf("failed to build service schema: %w", err)
	}
	return fd, nil
}

func shortName(service string) string {
	return service[len(packageName)+1:]
}

// methodDescriptor finds a method in the registered schema.
func methodDescriptor(fd protoreflect.FileDescriptor, service, method string) protoreflect.MethodDescriptor {
	sd := fd.Services().ByName(protoreflect.Name(shortName(service)))
	if sd == nil {
		return nil
	}
	return sd.Methods().ByName(protoreflect.Name(method))
}
