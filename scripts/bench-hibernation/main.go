// bench-hibernation measures heap memory before and after Hibernate()/Boot()
// calls on a large red-black store of synthetic records.
//
// Usage:
//
//	go run ./scripts/bench-hibernation --records 200000 --chunks 10 \
//	  --profile-dir docs/profiles/hibernation
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strconv"

	"github.com/Sumatoshi-tech/cascadedp/pkg/cdp"
	"github.com/Sumatoshi-tech/cascadedp/pkg/dt"
)

type heapSnapshot struct {
	label     string
	heapInUse uint64
	heapSys   uint64
	heapIdle  uint64
}

func main() {
	recordCount := flag.Int("records", 200000, "Number of records to insert into the store")
	chunks := flag.Int("chunks", 10, "Number of hibernate/boot cycles to run")
	profileDir := flag.String("profile-dir", "", "Directory to write heap profiles")
	cpuProfile := flag.Bool("cpu-profile", false, "Write CPU profile to profile-dir/cpu.prof")

	flag.Parse()

	if *profileDir == "" {
		log.Fatal("--profile-dir is required")
	}

	if err := os.MkdirAll(*profileDir, 0o755); err != nil {
		log.Fatalf("mkdir profile-dir: %v", err)
	}

	if *cpuProfile {
		cpuPath := filepath.Join(*profileDir, "cpu.prof")

		cpuFile, cpuErr := os.Create(cpuPath)
		if cpuErr != nil {
			log.Fatalf("create cpu profile: %v", cpuErr)
		}
		defer cpuFile.Close()

		if startErr := pprof.StartCPUProfile(cpuFile); startErr != nil {
			log.Fatalf("start cpu profile: %v", startErr)
		}

		defer pprof.StopCPUProfile()

		log.Printf("CPU profiling enabled -> %s", cpuPath)
	}

	root, err := cdp.InitializeStore(storeName("root"), cdp.ShadowingNone, false, cdp.BackendRBTree, cdp.ByName, nil)
	if err != nil {
		log.Fatalf("initialize store: %v", err)
	}

	log.Printf("populating store with %d records", *recordCount)

	for i := range *recordCount {
		rec := newValueRecord(i)
		if addErr := root.Add(rec); addErr != nil {
			log.Fatalf("add record %d: %v", i, addErr)
		}
	}

	var snapshots []heapSnapshot

	takeSnapshot := func(label string) {
		runtime.GC()
		runtime.GC()

		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		snapshots = append(snapshots, heapSnapshot{
			label:     label,
			heapInUse: m.HeapInuse,
			heapSys:   m.HeapSys,
			heapIdle:  m.HeapIdle,
		})
		log.Printf("  [heap] %-30s inuse=%6.1f MB  sys=%6.1f MB  idle=%6.1f MB",
			label, float64(m.HeapInuse)/1e6, float64(m.HeapSys)/1e6, float64(m.HeapIdle)/1e6)
	}

	writeHeapProfile := func(name string) {
		runtime.GC()
		runtime.GC()

		path := filepath.Join(*profileDir, name)

		f, ferr := os.Create(path)
		if ferr != nil {
			log.Printf("warning: create heap profile %s: %v", path, ferr)

			return
		}
		defer f.Close()

		if perr := pprof.WriteHeapProfile(f); perr != nil {
			log.Printf("warning: write heap profile %s: %v", path, perr)
		}
	}

	takeSnapshot("before_hibernate_cycles")
	writeHeapProfile("heap_before.prof")

	store := root.Store()

	for i := 1; i <= *chunks; i++ {
		if hibernateErr := store.Hibernate(); hibernateErr != nil {
			log.Fatalf("hibernate cycle %d: %v", i, hibernateErr)
		}

		takeSnapshot(fmt.Sprintf("cycle_%d_after_hibernate", i))

		if bootErr := store.Boot(); bootErr != nil {
			log.Fatalf("boot cycle %d: %v", i, bootErr)
		}

		takeSnapshot(fmt.Sprintf("cycle_%d_after_boot", i))
	}

	writeHeapProfile("heap_after.prof")

	fmt.Println()
	fmt.Println("=== Heap Memory Timeline ===")
	fmt.Printf("%-30s %10s %10s %10s\n", "Phase", "InUse(MB)", "Sys(MB)", "Idle(MB)")
	fmt.Println("-------------------------------+----------+----------+----------")

	for _, s := range snapshots {
		fmt.Printf("%-30s %10.1f %10.1f %10.1f\n",
			s.label, float64(s.heapInUse)/1e6, float64(s.heapSys)/1e6, float64(s.heapIdle)/1e6)
	}
}

func storeName(word string) dt.DT {
	id, err := dt.EncodeWord(word)
	if err != nil {
		log.Fatalf("encode name %q: %v", word, err)
	}

	return dt.DT{Domain: id, Tag: id}
}

func newValueRecord(i int) *cdp.Record {
	name, err := dt.EncodeNumeric(uint64(i)) //nolint:gosec // benchmark record count never overflows int->uint64.
	if err != nil {
		log.Fatalf("encode numeric name %d: %v", i, err)
	}

	id := dt.DT{Domain: name, Tag: name}

	payload := []byte(strconv.Itoa(i))

	data, err := cdp.NewData(id, dt.DT{}, 0, cdp.DataValue, true, payload, len(payload), nil)
	if err != nil {
		log.Fatalf("allocate data %d: %v", i, err)
	}

	rec, err := cdp.Initialize(id, cdp.ShadowingNone, false, data)
	if err != nil {
		log.Fatalf("initialize record %d: %v", i, err)
	}

	return rec
}
