// Copyright 2021 The gomst authors. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gomst

import (
	"github.com/sirupsen/logrus"
)

var (
	logger *logrus.Logger = nil
)

func init() {
	logger = logrus.New()
}

// SetLogger replaces the package logger so library output can be routed
// through the host application's logrus instance.
func SetLogger(loggerInstance *logrus.Logger) {
	logger = loggerInstance
}
