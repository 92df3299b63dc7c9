package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tsawler/go-metal/checkpoints"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/dudu/hairline/internal/config"
	"github.com/dudu/hairline/internal/inference"
)

func main() {
	var (
		configPath string
		libPath    string
		metal      bool
	)
	flag.StringVar(&configPath, "config", config.DefaultConfigFile, "Config file naming the detector models")
	flag.StringVar(&libPath, "lib", "", "ONNX Runtime shared library (default from config)")
	flag.BoolVar(&metal, "metal", false, "Also try importing with go-metal")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "modelcheck - check that the landmark models load\n\n")
		fmt.Fprintf(os.Stderr, "Usage: modelcheck [options] [model.onnx ...]\n\n")
		fmt.Fprintf(os.Stderr, "Without model arguments the face and mesh models from the config are checked.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if libPath == "" {
		libPath = cfg.ORTLibrary
	}

	models := flag.Args()
	if len(models) == 0 {
		models = []string{cfg.Detector.FaceModel, cfg.Detector.MeshModel}
	}

	fmt.Println("Initializing ONNX Runtime...")
	if err := inference.Initialize(libPath); err != nil {
		fmt.Printf("Failed to initialize ONNX Runtime: %v\n", err)
		fmt.Printf("\nSet ort_library in %s or %s to the shared library path\n", configPath, config.EnvORTLibrary)
		os.Exit(1)
	}
	defer inference.Shutdown()
	fmt.Println("ONNX Runtime initialized")

	failed := 0
	for _, model := range models {
		if err := check(model, metal); err != nil {
			fmt.Printf("FAILED: %v\n", err)
			failed++
		}
	}

	if failed > 0 {
		fmt.Printf("\n%d of %d models failed\n", failed, len(models))
		os.Exit(1)
	}
	fmt.Printf("\nAll %d models loaded successfully\n", len(models))
}

func check(modelPath string, metal bool) error {
	fmt.Printf("\nTesting ONNX model: %s\n", modelPath)

	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", modelPath)
	}

	info, err := inference.Inspect(modelPath)
	if err != nil {
		return err
	}

	fmt.Printf("Inputs (%d):\n", len(info.Inputs))
	for _, in := range info.Inputs {
		fmt.Printf("  %s: shape=%v, type=%v\n", in.Name, in.Dimensions, in.DataType)
	}
	fmt.Printf("Outputs (%d):\n", len(info.Outputs))
	for _, out := range info.Outputs {
		fmt.Printf("  %s: shape=%v, type=%v\n", out.Name, out.Dimensions, out.DataType)
	}
	printMetadata(modelPath)

	if metal {
		importMetal(modelPath)
	}
	return nil
}

func printMetadata(modelPath string) {
	metadata, err := ort.GetModelMetadata(modelPath)
	if err != nil {
		fmt.Printf("  (Could not read metadata: %v)\n", err)
		return
	}
	defer metadata.Destroy()

	if producer, err := metadata.GetProducerName(); err == nil {
		fmt.Printf("  Producer: %s\n", producer)
	}
	if version, err := metadata.GetVersion(); err == nil {
		fmt.Printf("  Version: %d\n", version)
	}
}

// importMetal reports whether go-metal can import the model. Failure is
// informational, ONNX Runtime stays the inference backend.
func importMetal(modelPath string) {
	fmt.Println("Attempting to import with go-metal...")
	importer := checkpoints.NewONNXImporter()
	checkpoint, err := importer.ImportFromONNX(modelPath)
	if err != nil {
		fmt.Printf("  go-metal import failed: %v\n", err)
		fmt.Println("  The model likely uses operations go-metal does not support")
		return
	}

	fmt.Printf("  go-metal import OK: %d layers, %d weight tensors\n",
		len(checkpoint.ModelSpec.Layers), len(checkpoint.Weights))
	for i, layer := range checkpoint.ModelSpec.Layers {
		fmt.Printf("    %d: %s (%s)\n", i+1, layer.Name, layer.Type)
	}
}
