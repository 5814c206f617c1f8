package walker

import "github.com/scenepack/scenepack/internal/sceneio"

// ID expansion (§4.3): when a library is followed at a level below the
// root and FullLibrary is not set, only the objects the referencing file
// actually used are traversed inside it, plus whatever those objects
// transitively pull in (their data, duplicator group, proxies; a
// material's node tree, texture slots and group; a texture's image; a
// scene's world, node tree and each base's object; a group's member
// objects). This file computes that closure; walkFile uses it to filter
// which datablocks the per-code handlers run over.

// objectNamesForLibrary scans c's object blocks and returns the name of
// every one whose id.lib pointer resolves to libAddr, i.e. the objects
// in this file that actually reference the library about to be queued.
func objectNamesForLibrary(c *sceneio.Container, libAddr uint64) map[string]bool {
	names := make(map[string]bool)
	for _, ob := range c.BlocksByCode("OB") {
		lib, err := c.ReadPointer(ob, "id.lib")
		if err != nil || lib != libAddr {
			continue
		}
		name, err := c.ReadString(ob, "id.name")
		if err != nil || name == "" {
			continue
		}
		names[name] = true
	}
	return names
}

// expandClosure returns the set of old-addresses reachable from the
// given object names within c, following the typed outgoing references
// §4.3 lists. It is used to restrict datablock scanning in a partially
// followed library; the caller still always scans library and scene
// references in full (those are structural, not per-object).
func expandClosure(c *sceneio.Container, objectNames map[string]bool) map[uint64]bool {
	closure := make(map[uint64]bool)
	if len(objectNames) == 0 {
		return closure
	}

	var queue []*sceneio.Block
	for _, ob := range c.BlocksByCode("OB") {
		name, err := c.ReadString(ob, "id.name")
		if err != nil || !objectNames[name] {
			continue
		}
		closure[ob.OldAddress] = true
		queue = append(queue, ob)
	}

	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]

		switch b.Code {
		case "OB":
			for _, field := range []string{"data", "dup_group", "proxy", "proxy_group"} {
				if sub, ok := followPointer(c, b, field, closure); ok {
					queue = append(queue, sub)
				}
			}
		case "GR":
			queue = append(queue, expandGroupMembers(c, b, closure)...)
		case "MA":
			for _, field := range []string{"nodetree", "mtex", "group"} {
				if sub, ok := followPointer(c, b, field, closure); ok {
					queue = append(queue, sub)
				}
			}
		case "TE":
			if sub, ok := followPointer(c, b, "ima", closure); ok {
				queue = append(queue, sub)
			}
		case "SC":
			for _, field := range []string{"world", "nodetree"} {
				if sub, ok := followPointer(c, b, field, closure); ok {
					queue = append(queue, sub)
				}
			}
			queue = append(queue, expandSceneBases(c, b, closure)...)
		case "ME":
			if sub, ok := followPointer(c, b, "mat", closure); ok {
				queue = append(queue, sub)
			}
		}
	}
	return closure
}

func followPointer(c *sceneio.Container, b *sceneio.Block, field string, closure map[uint64]bool) (*sceneio.Block, bool) {
	addr, err := c.ReadPointer(b, field)
	if err != nil || addr == 0 {
		return nil, false
	}
	sub, ok := c.BlockByOldAddress(addr)
	if !ok || closure[addr] {
		return nil, false
	}
	closure[addr] = true
	return sub, true
}

// expandGroupMembers walks a group's gobject linked list, adding each
// member's object block to the closure (§4.3: "a group yields each
// group-object's object").
func expandGroupMembers(c *sceneio.Container, group *sceneio.Block, closure map[uint64]bool) []*sceneio.Block {
	var found []*sceneio.Block
	addr, err := c.ReadPointer(group, "gobject.first")
	if err != nil {
		return nil
	}
	for addr != 0 {
		goBlock, ok := c.BlockByOldAddress(addr)
		if !ok {
			break
		}
		if sub, ok := followPointer(c, goBlock, "ob", closure); ok {
			found = append(found, sub)
		}
		next, err := c.ReadPointer(goBlock, "next")
		if err != nil {
			break
		}
		addr = next
	}
	return found
}

// expandSceneBases walks a scene's base linked list, adding each base's
// object to the closure (§4.3: "a scene yields... each base's object").
func expandSceneBases(c *sceneio.Container, scene *sceneio.Block, closure map[uint64]bool) []*sceneio.Block {
	var found []*sceneio.Block
	addr, err := c.ReadPointer(scene, "base.first")
	if err != nil {
		return nil
	}
	for addr != 0 {
		baseBlock, ok := c.BlockByOldAddress(addr)
		if !ok {
			break
		}
		if sub, ok := followPointer(c, baseBlock, "object", closure); ok {
			found = append(found, sub)
		}
		next, err := c.ReadPointer(baseBlock, "next")
		if err != nil {
			break
		}
		addr = next
	}
	return found
}
