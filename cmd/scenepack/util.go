package main

import "golang.org/x/xerrors"

func errUsage(syntax string) error {
	return xerrors.Errorf("usage: scenepack %s", syntax)
}
