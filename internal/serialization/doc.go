// Package serialization saves and loads training checkpoints in the .born
// container format.
//
//	Format Structure:
//	  [64 bytes: fixed header]
//	    0x00 magic "BORN"
//	    0x04 version (uint32 LE)
//	    0x08 flags (uint32 LE)
//	    0x10 JSON header size (uint64 LE)
//	    0x18 tensor data size (uint64 LE)
//	    0x20 SHA-256 of tensor data
//	  [JSON header: tensor table + checkpoint metadata]
//	  [padding to a 64-byte boundary]
//	  [tensor data: float32 little endian, in header order]
//
// Example usage:
//
//	err := serialization.WriteFile("last.born", model.StateDict(), &serialization.CheckpointMeta{
//	    Epoch: 3,
//	    Step:  1200,
//	})
//
//	ckpt, err := serialization.ReadFile("last.born")
//	_, err = model.LoadStateDict(ckpt.StateDict, true)
package serialization
