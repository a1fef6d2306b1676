package main

import (
	"os"
	"reflect"
	"strings"
	"time"

	musgen "github.com/mus-format/musgen-go/mus"
	genops "github.com/mus-format/musgen-go/options/generate"
	structops "github.com/mus-format/musgen-go/options/struct"
	typeops "github.com/mus-format/musgen-go/options/type"
	"github.com/poiesic/lectern/core"
)

func main() {
	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	// go generate runs from the core directory
	if strings.HasSuffix(cwd, "core") {
		if err := os.Chdir(".."); err != nil {
			panic(err)
		}
	}
	g, err := musgen.NewCodeGenerator(
		genops.WithPkgPath("github.com/poiesic/lectern/core"),
	)
	if err != nil {
		panic(err)
	}

	for _, t := range []reflect.Type{
		reflect.TypeFor[core.ID](),
		reflect.TypeFor[core.SourceType](),
		reflect.TypeFor[core.Status](),
		reflect.TypeFor[core.QueueState](),
		reflect.TypeFor[time.Duration](),
	} {
		g.AddDefinedType(t)
	}

	// Unix micro timestamps, matching storage precision
	micro := typeops.WithTimeUnit(typeops.Micro)

	err = g.AddStruct(reflect.TypeFor[core.Source](),
		structops.WithField(), // Type
		structops.WithField()) // Locator
	if err != nil {
		panic(err)
	}

	err = g.AddStruct(reflect.TypeFor[core.Content](),
		structops.WithField(), // ID
		structops.WithField(), // OwnerID
		structops.WithField(), // Source
		structops.WithField(), // Title
		structops.WithField(), // ExtractedText
		structops.WithField(), // Status
		structops.WithField(), // ErrorMessage
		structops.WithField(), // Generation
		structops.WithField(), // Version
		structops.WithField(), // Metadata
		structops.WithField(micro),
		structops.WithField(micro))
	if err != nil {
		panic(err)
	}

	err = g.AddStruct(reflect.TypeFor[core.Job](),
		structops.WithField(), // ID
		structops.WithField(), // ContentID
		structops.WithField(), // Generation
		structops.WithField(), // Payload
		structops.WithField(), // Attempt
		structops.WithField(), // MaxAttempts
		structops.WithField(), // BackoffBase
		structops.WithField(), // State
		structops.WithField(micro),
		structops.WithField(), // LastError
		structops.WithField(micro))
	if err != nil {
		panic(err)
	}

	err = g.AddStruct(reflect.TypeFor[core.Checkpoint](),
		structops.WithField(),
		structops.WithField(),
		structops.WithField(),
		structops.WithField(micro))
	if err != nil {
		panic(err)
	}

	bs, err := g.Generate()
	if err != nil {
		panic(err)
	}

	if err := os.WriteFile("./core/records_mus.gen.go", bs, 0644); err != nil {
		panic(err)
	}
}
