package networkio

import (
	"bytes"
	"encoding/gob"
	"os"

	"github.com/DataDog/zstd"

	"lintang/trafficspeed/pkg/datastructure"
)

const ContainerFile = "network.graph"

func Encode(tables datastructure.NetworkTables) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := gob.NewEncoder(buf)
	if err := enc.Encode(tables); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func Decode(bb []byte) (datastructure.NetworkTables, error) {
	var tables datastructure.NetworkTables
	dec := gob.NewDecoder(bytes.NewReader(bb))
	err := dec.Decode(&tables)
	return tables, err
}

// SaveToFile simpan tabel graph sebagai gob terkompresi zstd.
func SaveToFile(path string, tables datastructure.NetworkTables) error {
	bb, err := Encode(tables)
	if err != nil {
		return err
	}
	compressed, err := zstd.Compress(nil, bb)
	if err != nil {
		return err
	}
	return os.WriteFile(path, compressed, 0o644)
}

func LoadFromFile(path string) (datastructure.NetworkTables, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return datastructure.NetworkTables{}, err
	}
	bb, err := zstd.Decompress(nil, compressed)
	if err != nil {
		return datastructure.NetworkTables{}, err
	}
	return Decode(bb)
}

// LoadNetwork pakai container kalau ada, kalau tidak baca tabel json.
func LoadNetwork(dir string, granularity float64) (*datastructure.RoadNetwork, error) {
	containerPath := dir + string(os.PathSeparator) + ContainerFile
	if _, err := os.Stat(containerPath); err == nil {
		tables, err := LoadFromFile(containerPath)
		if err != nil {
			return nil, err
		}
		return datastructure.NewRoadNetwork(tables), nil
	}

	tables, err := LoadTables(dir, granularity)
	if err != nil {
		return nil, err
	}
	return datastructure.NewRoadNetwork(tables), nil
}
