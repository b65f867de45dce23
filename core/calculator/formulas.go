package calculator

import (
	"github.com/shopspring/decimal"

	"research-planner/core/catalog"
	"research-planner/internal/errors"
)

// formula computes the raw amount of a calculator: bytes for storage, SU
// for compute, GPU-hours for gpu. Rows exclude the total.
type formula func(c *Calculator) (decimal.Decimal, []Row, *errors.Error)

var (
	one        = decimal.NewFromInt(1)
	kib        = decimal.NewFromInt(1024)
	mib        = kib.Mul(kib)
	gib        = mib.Mul(kib)
	bytesPerTB = gib.Mul(kib)
	gbPerTB    = kib
	million    = decimal.NewFromInt(1_000_000)
)

var formulas = map[catalog.Kind]formula{
	catalog.KindMicroscopy:        microscopy,
	catalog.KindPhotography:       photography,
	catalog.KindGenomics:          perSampleGB("data_types", "data_type", "sample_count", "Please select a data type", "Data type", "Size per sample", "Number of samples"),
	catalog.KindVideo:             video,
	catalog.KindMedicalImaging:    perSampleGB("data_types", "data_type", "study_count", "Please select an imaging type", "Imaging type", "Size per study", "Number of studies"),
	catalog.KindDocuments:         documents,
	catalog.KindGenomicsPipelines: genomicsPipelines,
	catalog.KindSimulations:       simulations,
	catalog.KindBatchProcessing:   batchProcessing,
	catalog.KindStatistics:        statistics,
	catalog.KindMLTraining:        mlTraining,
	catalog.KindMLInference:       mlInference,
	catalog.KindGPUSimulation:     gpuSimulation,
}

func microscopy(c *Calculator) (decimal.Decimal, []Row, *errors.Error) {
	res, okRes := c.lookup("resolutions", "resolution")
	depth, okDepth := c.lookup("bit_depths", "bit_depth")
	if !okRes || !okDepth {
		return decimal.Zero, nil, errors.Input("Please select resolution and bit depth")
	}

	pixels, _ := res.Param("pixels")
	bpp, _ := depth.Param("bytes_per_pixel")
	channels := c.count("channels", 1)
	zSlices := c.count("z_slices", 1)
	images := c.count("image_count", 1)

	perImage := pixels.Mul(bpp).Mul(channels).Mul(zSlices)
	return perImage.Mul(images), []Row{
		{Label: "Resolution", Value: res.Label},
		{Label: "Bit depth", Value: depth.Label},
		{Label: "Channels", Value: formatCount(channels)},
		{Label: "Z-slices", Value: formatCount(zSlices)},
		{Label: "Image count", Value: formatCount(images)},
		{Label: "Per image", Value: formatBytes(perImage)},
	}, nil
}

func photography(c *Calculator) (decimal.Decimal, []Row, *errors.Error) {
	sizeMB := c.count("size_mb", 10)
	files := c.count("file_count", 1)
	return sizeMB.Mul(mib).Mul(files), []Row{
		{Label: "Size per file", Value: sizeMB.String() + " MB"},
		{Label: "Number of files", Value: formatCount(files)},
	}, nil
}

// perSampleGB builds the formula shared by table-driven per-sample storage
// calculators: size_gb of the selected row times a count
func perSampleGB(table, selKey, countKey, missing, selLabel, sizeLabel, countLabel string) formula {
	return func(c *Calculator) (decimal.Decimal, []Row, *errors.Error) {
		row, ok := c.lookup(table, selKey)
		if !ok {
			return decimal.Zero, nil, errors.Input(missing)
		}
		size, _ := row.Param("size_gb")
		n := c.count(countKey, 1)
		return size.Mul(n).Mul(gib), []Row{
			{Label: selLabel, Value: row.Label},
			{Label: sizeLabel, Value: size.String() + " GB"},
			{Label: countLabel, Value: formatCount(n)},
		}, nil
	}
}

func video(c *Calculator) (decimal.Decimal, []Row, *errors.Error) {
	preset, ok := c.lookup("presets", "preset")
	if !ok {
		return decimal.Zero, nil, errors.Input("Please select a video type")
	}
	perHour, _ := preset.Param("gb_per_hour")
	hours := c.count("hours", 1)
	return perHour.Mul(hours).Mul(gib), []Row{
		{Label: "Video type", Value: preset.Label},
		{Label: "Size per hour", Value: perHour.String() + " GB"},
		{Label: "Hours of video", Value: hours.String()},
	}, nil
}

func documents(c *Calculator) (decimal.Decimal, []Row, *errors.Error) {
	preset, ok := c.lookup("presets", "preset")
	if !ok {
		return decimal.Zero, nil, errors.Input("Please select a document type")
	}
	sizeMB, _ := preset.Param("size_mb")
	files := c.count("file_count", 1)
	return sizeMB.Mul(files).Mul(mib), []Row{
		{Label: "Document type", Value: preset.Label},
		{Label: "Size per file", Value: sizeMB.String() + " MB"},
		{Label: "Number of files", Value: formatCount(files)},
	}, nil
}

func genomicsPipelines(c *Calculator) (decimal.Decimal, []Row, *errors.Error) {
	pipeline, ok := c.lookup("pipelines", "pipeline")
	if !ok {
		return decimal.Zero, nil, errors.Input("Please select a pipeline")
	}
	perSample, _ := pipeline.Param("su_per_sample")
	samples := c.count("sample_count", 1)
	return perSample.Mul(samples), []Row{
		{Label: "Pipeline", Value: pipeline.Label},
		{Label: "SU per sample", Value: formatCount(perSample)},
		{Label: "Number of samples", Value: formatCount(samples)},
	}, nil
}

// simulations supports three package metrics. The first one present on
// the selected row wins.
func simulations(c *Calculator) (decimal.Decimal, []Row, *errors.Error) {
	pkg, ok := c.lookup("packages", "package")
	if !ok {
		return decimal.Zero, nil, errors.Input("Please select a simulation package")
	}

	if rate, ok := pkg.Param("su_per_ns_per_million_atoms"); ok {
		ns := c.count("nanoseconds", 1)
		atoms := c.count("atoms", 1_000_000)
		return rate.Mul(ns).Mul(atoms.Div(million)), []Row{
			{Label: "Package", Value: pkg.Label},
			{Label: "Simulation time", Value: ns.String() + " ns"},
			{Label: "System size", Value: formatCount(atoms) + " atoms"},
		}, nil
	}
	if rate, ok := pkg.Param("su_per_hour_simulated"); ok {
		hours := c.count("sim_hours", 1)
		return rate.Mul(hours), []Row{
			{Label: "Package", Value: pkg.Label},
			{Label: "Simulation hours", Value: hours.String()},
		}, nil
	}
	if rate, ok := pkg.Param("su_per_calculation"); ok {
		calcs := c.count("calculations", 1)
		return rate.Mul(calcs), []Row{
			{Label: "Package", Value: pkg.Label},
			{Label: "Number of calculations", Value: formatCount(calcs)},
		}, nil
	}
	return decimal.Zero, nil, errors.Input("Simulation package " + pkg.Label + " has no compute rate")
}

func batchProcessing(c *Calculator) (decimal.Decimal, []Row, *errors.Error) {
	tmpl, ok := c.lookup("templates", "template")
	if !ok {
		return decimal.Zero, nil, errors.Input("Please select a processing type")
	}
	perFile, _ := tmpl.Param("su_per_file")
	files := c.count("file_count", 1)
	return perFile.Mul(files), []Row{
		{Label: "Processing type", Value: tmpl.Label},
		{Label: "SU per file", Value: perFile.String()},
		{Label: "Number of files", Value: formatCount(files)},
	}, nil
}

func statistics(c *Calculator) (decimal.Decimal, []Row, *errors.Error) {
	workload, ok := c.lookup("workloads", "workload")
	if !ok {
		return decimal.Zero, nil, errors.Input("Please select a workload type")
	}
	estimate, _ := workload.Param("su_estimate")
	runs := c.count("runs", 1)
	return estimate.Mul(runs), []Row{
		{Label: "Workload type", Value: workload.Label},
		{Label: "SU estimate", Value: formatCount(estimate)},
		{Label: "Number of runs", Value: formatCount(runs)},
	}, nil
}

func mlTraining(c *Calculator) (decimal.Decimal, []Row, *errors.Error) {
	size, ok := c.lookup("model_sizes", "model_size")
	if !ok {
		return decimal.Zero, nil, errors.Input("Please select a model size")
	}
	hours, _ := size.Param("typical_hours")
	runs := c.count("training_runs", 1)
	return hours.Mul(runs), []Row{
		{Label: "Model size", Value: size.Label},
		{Label: "Typical hours", Value: formatCount(hours)},
		{Label: "Training runs", Value: formatCount(runs)},
	}, nil
}

func mlInference(c *Calculator) (decimal.Decimal, []Row, *errors.Error) {
	workload, ok := c.lookup("workloads", "workload")
	if !ok {
		return decimal.Zero, nil, errors.Input("Please select a workload type")
	}
	items := c.count("item_count", 1000)

	if rate, ok := workload.Param("items_per_gpu_hour"); ok {
		return items.Div(rate), []Row{
			{Label: "Workload type", Value: workload.Label},
			{Label: "Items per GPU-hour", Value: formatCount(rate)},
			{Label: "Total items", Value: formatCount(items)},
		}, nil
	}
	if rate, ok := workload.Param("tokens_per_gpu_hour"); ok {
		return items.Div(rate), []Row{
			{Label: "Workload type", Value: workload.Label},
			{Label: "Tokens per GPU-hour", Value: formatCount(rate)},
			{Label: "Total tokens", Value: formatCount(items)},
		}, nil
	}
	return decimal.Zero, nil, errors.Input("Workload " + workload.Label + " has no throughput")
}

func gpuSimulation(c *Calculator) (decimal.Decimal, []Row, *errors.Error) {
	pkg, ok := c.lookup("packages", "package")
	if !ok {
		return decimal.Zero, nil, errors.Input("Please select a simulation package")
	}
	perNS, _ := pkg.Param("gpu_hours_per_ns")
	ns := c.count("nanoseconds", 1)
	return perNS.Mul(ns), []Row{
		{Label: "Package", Value: pkg.Label},
		{Label: "GPU-hours per ns", Value: perNS.String()},
		{Label: "Simulation time", Value: ns.String() + " ns"},
	}, nil
}
